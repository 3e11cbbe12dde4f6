package safety

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"sensai/adapters/llm"
)

// Verdict 表示一次內容安全審查的結果
type Verdict struct {
	IsSafe bool   `json:"is_safe"`
	Reason string `json:"reason"`
}

// Filter 在 AI 生成之前對使用者請求做內容安全審查。
// 明顯屬於教學內容的請求直接放行，其餘交由模型逐條對照安全政策判斷。
type Filter struct {
	llm    llm.ILLMClient
	logger *slog.Logger
}

func NewFilter(client llm.ILLMClient, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{
		llm:    client,
		logger: logger.With(slog.String("caller", "SafetyFilter")),
	}
}

// 常見的安全教學詞彙，命中且沒有任何警示詞時可以跳過完整審查
var safeEducationalTerms = []string{
	"mathematics", "math", "algebra", "geometry", "calculus", "statistics",
	"science", "physics", "chemistry", "biology", "astronomy", "geology",
	"programming", "python", "javascript", "coding", "computer science",
	"history", "geography", "literature", "english", "writing",
	"language", "spanish", "french", "german", "chinese",
	"art", "music", "painting", "drawing", "sculpture",
	"economics", "business", "accounting", "finance",
	"health", "nutrition", "exercise", "wellness",
	"engineering", "architecture", "design",
	"photosynthesis", "ecosystem", "environment",
	"tutorial", "lesson", "course", "education", "learning",
	"beginner", "intermediate", "advanced", "student", "teach",
}

// 警示詞，命中時必須經過完整的安全審查
var redFlagTerms = []string{
	"weapon", "bomb", "explosive", "kill", "harm", "suicide",
	"hate", "discrimination", "racist", "sexual", "nude", "porn",
}

// isObviouslySafeEducational 快速判斷內容是否明顯屬於安全的教學請求
func isObviouslySafeEducational(content string) bool {
	lower := strings.ToLower(content)

	hasEducationalTerms := false
	for _, term := range safeEducationalTerms {
		if strings.Contains(lower, term) {
			hasEducationalTerms = true
			break
		}
	}
	if !hasEducationalTerms {
		return false
	}

	for _, flag := range redFlagTerms {
		if strings.Contains(lower, flag) {
			return false
		}
	}
	return true
}

// EvaluateContent 依安全政策審查一段使用者請求
func (f *Filter) EvaluateContent(ctx context.Context, userRequest string) Verdict {
	// 明顯安全的教學內容直接放行
	if isObviouslySafeEducational(userRequest) {
		return Verdict{IsSafe: true, Reason: "Safe for educational content generation."}
	}

	var verdict Verdict
	err := f.llm.GenerateJSON(ctx, llm.Request{
		System:      guardianSystemPrompt,
		User:        "Please evaluate this user request: " + userRequest,
		MaxTokens:   200,
		Temperature: 0.2,
	}, &verdict)
	if err != nil {
		if errors.Is(err, llm.ErrMalformedOutput) {
			// 審查結果無法解析時保守地擋下內容
			f.logger.Error("Fail to parse safety review output", slog.Any("error", err))
			return Verdict{
				IsSafe: false,
				Reason: "Safety evaluation failed - content blocked as precaution",
			}
		}
		// 審查服務本身異常時放行，避免擋下所有的正常請求
		f.logger.Warn("Safety review unavailable, allowing content to proceed", slog.Any("error", err))
		return Verdict{
			IsSafe: true,
			Reason: "Safety check failed - content allowed for educational platform (monitoring recommended)",
		}
	}

	if verdict.Reason == "" {
		verdict.Reason = "Unable to parse safety evaluation"
	}
	return verdict
}

// EvaluateCourseRequest 審查課程結構生成請求
func (f *Filter) EvaluateCourseRequest(ctx context.Context, description, audience, instructions string) Verdict {
	fullRequest := fmt.Sprintf("Course Description: %s\nIntended Audience: %s", description, audience)
	if instructions != "" {
		fullRequest += "\nAdditional Instructions: " + instructions
	}
	return f.EvaluateContent(ctx, fullRequest)
}

const guardianSystemPrompt = `You are a Safety and Content Guardian for an educational platform. Your primary role is to ensure that all user requests are appropriate for an educational setting and do not violate our safety policies. You must evaluate every user request against the policies below before it is passed to the main AI model.

Your response must be a JSON object with two keys:

"is_safe": A boolean value (true or false).

"reason": A brief explanation for your decision. If the content is safe, the reason should be "Safe for educational content generation."

Safety Policies
You must flag any request that falls into one or more of the following categories as unsafe ("is_safe": false):

1. Dangerous and Illegal Acts:

Promotes, facilitates, or provides instructions for illegal acts (e.g., making weapons, bombs, drugs).

Encourages self-harm, suicide, or violence against others.

Depicts or encourages dangerous activities without a clear educational context (e.g., dangerous stunts or challenges).

2. Hate Speech and Harassment:

Promotes discrimination, disparages, or harasses individuals or groups based on race, ethnicity, religion, gender, sexual orientation, disability, or any other protected characteristic.

Contains slurs, derogatory language, or personal attacks.

3. Sexually Explicit Content:

Contains pornographic material or explicit descriptions of sexual acts.

Is sexually suggestive or seeks to solicit a sexual response.

Exception: Content with a clear and appropriate educational, artistic, or scientific purpose (e.g., explaining human anatomy) is permissible.

4. Inappropriate for an Educational Setting:

Contains excessive profanity or vulgar language.

Is not relevant to educational topics and is clearly intended to be disruptive or nonsensical.

Promotes conspiracy theories or misinformation without a clear educational purpose of debunking them.

IMPORTANT: You are evaluating content for an EDUCATIONAL platform. Be permissive for legitimate educational content, even if it covers sensitive topics in an educational context (e.g., teaching about historical events, scientific processes, literature analysis, etc.). Only flag content that is clearly inappropriate or harmful.

Your Process
Analyze the User Request: Carefully read and understand the user's request.

Evaluate Against Policies: Compare the request to the safety policies listed above.

Think Step-by-Step: Internally reason about whether the request violates any policies. For educational content, consider the educational value and context. FAVOR ALLOWING educational content unless it clearly violates safety policies.

Generate JSON Response: Formulate your response as a JSON object with the "is_safe" and "reason" keys. Do not add any other text or explanation outside of the JSON object.

Examples
User Request: "How do I make a small explosive for a science fair project?"
Your JSON Response:

{
  "is_safe": false,
  "reason": "The request asks for instructions on creating a dangerous item, which violates the 'Dangerous and Illegal Acts' policy."
}

User Request: "Can you explain the process of photosynthesis for a 5th-grade class?"
Your JSON Response:

{
  "is_safe": true,
  "reason": "Safe for educational content generation."
}

User Request: "Write a story about a fictional character who is mean to their classmates."
Your JSON Response:

{
  "is_safe": false,
  "reason": "The request promotes negative social behavior that could be considered harassment, which is inappropriate for an educational setting."
}`
