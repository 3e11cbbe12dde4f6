// 供atlas讀取gorm models的schema loader
// 由根目錄的atlas.hcl作為external_schema呼叫

package main

import (
	"fmt"
	"io"
	"os"

	"ariga.io/atlas-provider-gorm/gormschema"

	"sensai/models"
)

func main() {
	stmts, err := gormschema.New("postgres").Load(
		&models.Course{},
		&models.Milestone{},
		&models.Task{},
		&models.Question{},
		&models.TaskCompletion{},
		&models.Schedule{},
		&models.MediaAsset{},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load gorm schema: %v\n", err)
		os.Exit(1)
	}
	_, _ = io.WriteString(os.Stdout, stmts)
}
