package model

import "path/filepath"

// FetchRequest describes one acquisition: where to fetch from and where the
// raw payload lands. It is built once per lane and never modified.
type FetchRequest struct {
	Kind                ContentKind `json:"kind"`
	SourceURL           string      `json:"source_url"`
	DestinationFolder   string      `json:"destination_folder"`
	DestinationFilename string      `json:"destination_filename"`
}

// DestinationPath returns DestinationFolder/DestinationFilename.
func (r FetchRequest) DestinationPath() string {
	return filepath.Join(r.DestinationFolder, r.DestinationFilename)
}

// ReportRequest drives the report processor: read InputPath as Kind and
// write the derived artifact to OutputPath.
type ReportRequest struct {
	Kind       ContentKind `json:"kind"`
	InputPath  string      `json:"input_path"`
	OutputPath string      `json:"output_path"`
}
