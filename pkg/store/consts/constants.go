package consts

const (
	// DefaultDBName is the default database name.
	DefaultDBName = "givingfaq"

	// Default table/collection names.
	TableNameEntries  = "faq_entries"
	TableNameMetadata = "faq_metadata"

	// DefaultRedisKey is the key the snapshot is stored under in Redis.
	DefaultRedisKey = "givingfaq:knowledge"

	// Column names
	ColOrdinal   = "ordinal"
	ColQuestion  = "question"
	ColAnswer    = "answer"
	ColLanguage  = "lang"
	ColEmbedding = "embedding"
	ColModel     = "model"
	ColDimension = "dimension"
	ColBuiltAt   = "built_at"

	// Neo4j specific
	LabelKnowledgeBase = "KnowledgeBase"
	LabelEntry         = "FAQEntry"
	RelHasEntry        = "HAS_ENTRY"
)
