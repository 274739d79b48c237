package model

// Difficulty grades a practice problem.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known grades.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// TestCase is one stdin/expected-stdout pair.
type TestCase struct {
	Input          string `json:"input" yaml:"input"`
	ExpectedOutput string `json:"expectedOutput" yaml:"expectedOutput"`
}

// Problem is a practice exercise. ID is a human-readable slug such as
// "pointer-swap"; it doubles as the URL segment.
type Problem struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Difficulty  Difficulty `json:"difficulty" yaml:"difficulty"`
	Category    string     `json:"category" yaml:"category"`
	InitialCode string     `json:"initialCode" yaml:"initialCode"`
	TestCases   []TestCase `json:"testCases" yaml:"testCases"`
	Hint        string     `json:"hint,omitempty" yaml:"hint,omitempty"`
}
