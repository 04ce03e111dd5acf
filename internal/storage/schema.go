package storage

// SchemaVersion is the version of the local collection layout. Bump it when
// collections or their key/index fields change.
const SchemaVersion = 1

// Collection names of the local store.
const (
	FlashcardSessions = "flashcard_sessions"
	UserProgress      = "user_progress"
	Scenarios         = "scenarios"
	UserRewards       = "user_rewards"
	SyncQueue         = "sync_queue"
)

// CurrentProgressKey is the user_progress key used when no user is signed in.
const CurrentProgressKey = "current"

// Collection describes a named record collection: the JSON field holding the
// primary key and the JSON fields with a secondary index.
type Collection struct {
	Name    string
	KeyPath string
	Indexes []string
}

// Schema is the fixed set of collections for SchemaVersion.
var Schema = []Collection{
	{Name: FlashcardSessions, KeyPath: "id", Indexes: []string{"user_id"}},
	{Name: UserProgress, KeyPath: "user_id"},
	{Name: Scenarios, KeyPath: "id", Indexes: []string{"session_id"}},
	{Name: UserRewards, KeyPath: "id", Indexes: []string{"user_id"}},
	{Name: SyncQueue, KeyPath: "id", Indexes: []string{"synced"}},
}

func indexColumn(field string) string {
	return "idx_" + field
}
