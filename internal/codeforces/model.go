package codeforces

// Shapes returned by the Codeforces API. Only fields the platform consumes
// are declared; the API sends plenty more.

type UserInfo struct {
	Handle    string `json:"handle"`
	Rating    int    `json:"rating"`
	Rank      string `json:"rank"`
	MaxRating int    `json:"maxRating"`
	MaxRank   string `json:"maxRank"`
	Avatar    string `json:"avatar"`
}

type Contest struct {
	ID                  int    `json:"id"`
	Name                string `json:"name"`
	Type                string `json:"type"`
	Phase               string `json:"phase"`
	DurationSeconds     int64  `json:"durationSeconds"`
	StartTimeSeconds    int64  `json:"startTimeSeconds"`
	RelativeTimeSeconds int64  `json:"relativeTimeSeconds"`
}

// ContestPhaseBefore marks a contest that has not started yet.
const ContestPhaseBefore = "BEFORE"

type Problem struct {
	ContestID int      `json:"contestId"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    int      `json:"rating,omitempty"`
	Tags      []string `json:"tags"`
	// SolvedCount comes from the parallel problemStatistics array, merged
	// in by Problems.
	SolvedCount int `json:"solvedCount"`
}

type problemStatistic struct {
	ContestID   int    `json:"contestId"`
	Index       string `json:"index"`
	SolvedCount int    `json:"solvedCount"`
}

type Submission struct {
	ID                  int64   `json:"id"`
	ContestID           int     `json:"contestId"`
	Problem             Problem `json:"problem"`
	Verdict             string  `json:"verdict"`
	CreationTimeSeconds int64   `json:"creationTimeSeconds"`
	ProgrammingLanguage string  `json:"programmingLanguage"`
}
