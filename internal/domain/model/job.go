package model

// RevaluationJob asks a worker to rescore one asset of a league under a
// configuration version and publish it to the league's value chart.
type RevaluationJob struct {
	LeagueID      string
	AssetID       AssetID
	ConfigVersion int
	// Key is the dedupe key released once the job finishes.
	Key string
}
