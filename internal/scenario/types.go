package scenario

// Case is one observation within a scenario. Expectations are optional:
// a case with none only checks that its evidence is valid.
type Case struct {
	Name           string            `yaml:"name,omitempty"`
	Evidence       map[string]string `yaml:"evidence"`
	Expect         string            `yaml:"expect,omitempty"`
	MinProbability *float64          `yaml:"min_probability,omitempty"`
	MaxProbability *float64          `yaml:"max_probability,omitempty"`
	Alarm          *bool             `yaml:"alarm,omitempty"`
}

// Scenario is a named, ordered list of observations. The same file feeds
// both the check command and the scenario evidence source.
type Scenario struct {
	Name  string `yaml:"name"`
	Cases []Case `yaml:"cases"`

	// File is the path Load read the scenario from.
	File string `yaml:"-"`
}

// CaseResult is the outcome of evaluating one case.
type CaseResult struct {
	Index       int     `json:"index"`
	Name        string  `json:"name,omitempty"`
	Passed      bool    `json:"passed"`
	Evidence    string  `json:"evidence"`
	Expected    string  `json:"expected,omitempty"`
	Actual      string  `json:"actual"`
	Probability float64 `json:"probability"`
	Alarm       bool    `json:"alarm"`
	Reason      string  `json:"reason,omitempty"`
}

// RunResult is the outcome of running all cases in one scenario file.
type RunResult struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Cases  []CaseResult `json:"cases"`
}
