package template

// Placeholder tokens recognised in subjects and bodies
const (
	TokenFirstName      = "{{First Name}}"
	TokenCurrentCompany = "{{Current Company}}"
	TokenCompanyName    = "{{Company Name}}"
	TokenYourName       = "{{Your Name}}"
	TokenRecruiterName  = "{{Recruiter Name}}"
	TokenSkill          = "{{Skill}}"
)

// StandardTokens are the only tokens allowed in non-personalized campaigns
var StandardTokens = []string{TokenFirstName, TokenCompanyName, TokenRecruiterName}

// Personalization section markers
const (
	PersonalizationStart = "<!-- PERSONALIZATION_SECTION_START -->"
	PersonalizationEnd   = "<!-- PERSONALIZATION_SECTION_END -->"
)

// Fallback values used when the context leaves a field empty
const (
	DefaultCompanyName   = "Our Company"
	DefaultRecruiterName = "Your Recruiter"
	DefaultSkill         = "healthcare"
)

// Candidate is the preview-only recipient context
type Candidate struct {
	Name    string   `json:"name"`
	Company string   `json:"company"`
	Skills  []string `json:"skills"`
}

// Context carries every value a token can resolve to
type Context struct {
	Candidate     Candidate `json:"candidate"`
	CompanyName   string    `json:"companyName"`
	RecruiterName string    `json:"recruiterName"`
}

// RenderResult contains rendered step output
type RenderResult struct {
	Subject   string `json:"subject"`
	HTML      string `json:"html"`
	Text      string `json:"text"`
	WordCount int    `json:"wordCount"`
}
