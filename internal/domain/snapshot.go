package domain

// TimestampLayout is the format of Metadata.LastUpdated.
const TimestampLayout = "2006-01-02 15:04:05"

// Metadata describes a snapshot.
type Metadata struct {
	LastUpdated string `json:"last_updated"`
	RecordCount int    `json:"record_count"`
}

// Snapshot is the artifact the dashboard reads. RecordCount always equals
// len(Data) and Data keeps the order the records were fetched in.
type Snapshot struct {
	Metadata Metadata         `json:"metadata"`
	Data     []EnrichedRecord `json:"data"`
}
