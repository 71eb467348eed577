package model

// WindowAggregate summarizes one side's form over their last N strictly
// earlier bouts. A debut competitor gets the zero aggregate with
// AvgOpponentRating pinned to the engine's initial rating.
type WindowAggregate struct {
	Bouts              int     `json:"bouts"`
	WinRate            float64 `json:"win_rate"`
	FinishRate         float64 `json:"finish_rate"`
	FirstRoundFinishes int     `json:"first_round_finishes"`
	KnockdownsScored   int     `json:"knockdowns_scored"`
	KnockdownsAbsorbed int     `json:"knockdowns_absorbed"`
	SigStrikeAccuracy  float64 `json:"sig_strike_accuracy"`
	TakedownAccuracy   float64 `json:"takedown_accuracy"`
	SubAttemptsPerBout float64 `json:"sub_attempts_per_bout"`
	ControlShare       float64 `json:"control_share"`
	AvgOpponentRating  float64 `json:"avg_opponent_rating"`
	WinStreak          int     `json:"win_streak"`
	DaysSinceLastBout  float64 `json:"days_since_last_bout"`
	BoutsLastYear      int     `json:"bouts_last_year"`
}

// FeatureVector is the derived feature row for one contest, keyed by contest.
// Differentials are red minus blue. It is a deterministic function of
// strictly earlier data and is safely recomputable.
type FeatureVector struct {
	ContestKey   ContestKey      `json:"contest_key"`
	Label        Outcome         `json:"label"`
	HeightDiffCM float64         `json:"height_diff_cm"`
	ReachDiffIn  float64         `json:"reach_diff_in"`
	AgeDiffYears float64         `json:"age_diff_years"`
	RatingDiff   float64         `json:"rating_diff"`
	Red          WindowAggregate `json:"red"`
	Blue         WindowAggregate `json:"blue"`
}
