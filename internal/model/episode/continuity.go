package episode

// Severity 连续性问题严重程度
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityBlocking Severity = "blocking"
)

// IssueCategory 连续性问题类别
type IssueCategory string

const (
	CategoryLocation            IssueCategory = "location"
	CategoryTimeOfDay           IssueCategory = "time_of_day"
	CategoryLighting            IssueCategory = "lighting"
	CategoryMood                IssueCategory = "mood"
	CategoryCameraFraming       IssueCategory = "camera_framing"
	CategoryCharacterClothing   IssueCategory = "character_clothing"
	CategoryCharacterExpression IssueCategory = "character_expression"
	CategoryCharacterPosition   IssueCategory = "character_position"
	CategoryCharacterProps      IssueCategory = "character_props"
)

// ContinuityIssue 一条连续性问题
type ContinuityIssue struct {
	Category    IssueCategory `json:"category"`
	Severity    Severity      `json:"severity"`
	Description string        `json:"description"`
	Subject     string        `json:"subject,omitempty"`    // 涉及的角色ID（角色类问题）
	Expected    string        `json:"expected"`             // 前序快照中的值
	Actual      string        `json:"actual"`               // 当前片段计划的值
	Correction  string        `json:"correction,omitempty"` // 自动修正建议（开启 autoCorrect 时）
}

// Resolved 是否已给出修正
func (i ContinuityIssue) Resolved() bool {
	return i.Correction != ""
}

// ContinuityResult 连续性校验结果
type ContinuityResult struct {
	IsValid            bool                 `json:"is_valid"`
	OverallScore       float64              `json:"overall_score"` // 0-100
	ComparedAttributes int                  `json:"compared_attributes"`
	Issues             []ContinuityIssue    `json:"issues"`
	CorrectedPlan      *VisualStateSnapshot `json:"corrected_plan,omitempty"`
}

// HasBlocking 是否包含阻断级问题
func (r *ContinuityResult) HasBlocking() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityBlocking {
			return true
		}
	}
	return false
}
