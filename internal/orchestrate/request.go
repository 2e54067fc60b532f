// Package orchestrate ties the pipeline together: resolve the selection,
// fetch and decode reports, optionally stage them as parquet in object
// storage, and load the result into the warehouse.
package orchestrate

import "fmt"

// Request describes one load: which reports to fetch and where they land.
type Request struct {
	GCPProject       string   `json:"gcp_project"`
	TableID          string   `json:"table_id"`
	PartitionColumns []string `json:"partition_columns"`
	Bucket           string   `json:"bucket_name_parquet"`
	UF               []string `json:"uf"`
	Year             []string `json:"year"`
	Month            []string `json:"month"`
	IfExists         string   `json:"if_exists,omitempty"`
}

// Validate checks the fields every load needs. Year and month may be empty;
// they default to the current year and previous month.
func (r Request) Validate() error {
	if r.TableID == "" {
		return fmt.Errorf("table_id is required")
	}
	if len(r.UF) == 0 {
		return fmt.Errorf("at least one uf is required")
	}
	return nil
}

// Result summarizes a completed load.
type Result struct {
	Rows        int `json:"rows"`
	Columns     int `json:"columns"`
	FailedFiles int `json:"failed_files"`
	StagedFiles int `json:"staged_files,omitempty"`
}
