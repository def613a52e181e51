package syncer

import "time"

// SyncResult is the outcome of one site sync. Success means no data type failed.
type SyncResult struct {
	SiteID          int64             `json:"siteId"`
	SiteName        string            `json:"siteName,omitempty"`
	Success         bool              `json:"success"`
	RecordsSynced   map[string]int    `json:"recordsSynced"`
	Errors          map[string]string `json:"errors,omitempty"`
	DurationSeconds float64           `json:"durationSeconds"`
}

// TotalRecords sums the records of every data type.
func (r SyncResult) TotalRecords() int {
	total := 0
	for _, n := range r.RecordsSynced {
		total += n
	}
	return total
}

// SyncSummary aggregates one run over many sites.
type SyncSummary struct {
	RunID           string       `json:"runId"`
	Full            bool         `json:"full"`
	StartedAt       time.Time    `json:"startedAt"`
	TotalSites      int          `json:"totalSites"`
	SuccessfulSites int          `json:"successfulSites"`
	FailedSites     int          `json:"failedSites"`
	TotalRecords    int          `json:"totalRecords"`
	Results         []SyncResult `json:"results"`
	DurationSeconds float64      `json:"durationSeconds"`
}

// DataTypeStatus is the stored sync state of one data type.
type DataTypeStatus struct {
	LastSync time.Time  `json:"lastSync"`
	LastData *time.Time `json:"lastData,omitempty"`
	Records  int        `json:"records"`
	Status   string     `json:"status"`
	Error    string     `json:"error,omitempty"`
}

// SiteStatus is the stored sync state of one site.
type SiteStatus struct {
	SiteID     int64                     `json:"siteId"`
	SiteName   string                    `json:"siteName"`
	LastUpdate time.Time                 `json:"lastUpdate"`
	DataTypes  map[string]DataTypeStatus `json:"dataTypes"`
}
