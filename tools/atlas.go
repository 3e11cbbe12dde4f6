//go:build tools
// +build tools

package tools

import (
	_ "ariga.io/atlas-provider-gorm/gormschema"
)

//go:generate go run ./atlas
