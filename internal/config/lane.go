package config

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/tmontague/datafetch/internal/model"
)

// Source URLs of the bundled movie datasets.
const (
	DefaultTextURL  = "https://raw.githubusercontent.com/jtleek/modules/master/01_DataScientistToolbox/01_01_seriesMotivation/data/movies.txt"
	DefaultCSVURL   = "https://gist.githubusercontent.com/tiangechen/b68782efa49a16edaf07dc2cdaa855ea/raw/0c794a9717f18b094eabab2cd6a6b9a226903577/movies.csv"
	DefaultExcelURL = "https://github.com/parulnith/Data-Visualisation-libraries/raw/master/Data%20Visualisation%20with%20Tableau/Wordclouds%20with%20Tableau/movies.xlsx"
	DefaultJSONURL  = "https://raw.githubusercontent.com/prust/wikipedia-movie-data/master/movies-1980s.json"
)

// Lane configures one content kind end to end: where to fetch from, where
// the raw payload is written, and where the derived report goes.
type Lane struct {
	// Kind is the content kind handled by this lane.
	Kind model.ContentKind `yaml:"kind"`

	// SourceURL is the HTTP(S) URL to fetch.
	SourceURL string `yaml:"source_url,omitempty"`

	// DestinationFolder is the folder of the raw payload, relative to the root
	// unless absolute.
	DestinationFolder string `yaml:"destination_folder,omitempty"`

	// DestinationFilename is the file name of the raw payload.
	DestinationFilename string `yaml:"destination_filename,omitempty"`

	// ReportOutputPath is the path of the derived report, relative to the root
	// unless absolute. Excel reports always get an .xlsx extension.
	ReportOutputPath string `yaml:"report_output_path,omitempty"`
}

// DefaultLanes returns the four lanes of the standard movie-data run.
func DefaultLanes() []Lane {
	return []Lane{
		{
			Kind:                model.KindText,
			SourceURL:           DefaultTextURL,
			DestinationFolder:   "data-txt",
			DestinationFilename: "data.txt",
			ReportOutputPath:    "result_txt.txt",
		},
		{
			Kind:                model.KindCSV,
			SourceURL:           DefaultCSVURL,
			DestinationFolder:   "data-csv",
			DestinationFilename: "data.csv",
			ReportOutputPath:    "result_csv.txt",
		},
		{
			Kind:                model.KindExcel,
			SourceURL:           DefaultExcelURL,
			DestinationFolder:   "data-excel",
			DestinationFilename: "data.xlsx",
			ReportOutputPath:    "result_excel.xlsx",
		},
		{
			Kind:                model.KindJSON,
			SourceURL:           DefaultJSONURL,
			DestinationFolder:   "data-json",
			DestinationFilename: "data.json",
			ReportOutputPath:    "result_json.txt",
		},
	}
}

// FetchRequest returns the acquisition request for this lane.
func (l Lane) FetchRequest() model.FetchRequest {
	return model.FetchRequest{
		Kind:                l.Kind,
		SourceURL:           l.SourceURL,
		DestinationFolder:   l.DestinationFolder,
		DestinationFilename: l.DestinationFilename,
	}
}

// ReportRequest returns the derivation request for this lane.
// The input is the lane's raw payload path; the output is the report path
// as the kind writes it (Excel reports always end in .xlsx).
func (l Lane) ReportRequest() model.ReportRequest {
	return model.ReportRequest{
		Kind:       l.Kind,
		InputPath:  l.FetchRequest().DestinationPath(),
		OutputPath: l.Kind.ReportPath(l.ReportOutputPath),
	}
}

// MergeLanes overlays overrides onto base by kind.
// Non-empty override fields replace the base lane's fields; lanes for kinds
// not present in base are appended in override order.
func MergeLanes(base, overrides []Lane) []Lane {
	result := make([]Lane, len(base))
	copy(result, base)

	for _, o := range overrides {
		merged := false
		for i := range result {
			if result[i].Kind != o.Kind {
				continue
			}
			result[i] = mergeLane(result[i], o)
			merged = true
			break
		}
		if !merged {
			result = append(result, o)
		}
	}
	return result
}

// mergeLane returns base with the non-empty fields of override applied.
func mergeLane(base, override Lane) Lane {
	result := base
	if override.SourceURL != "" {
		result.SourceURL = override.SourceURL
	}
	if override.DestinationFolder != "" {
		result.DestinationFolder = override.DestinationFolder
	}
	if override.DestinationFilename != "" {
		result.DestinationFilename = override.DestinationFilename
	}
	if override.ReportOutputPath != "" {
		result.ReportOutputPath = override.ReportOutputPath
	}
	return result
}

// validateLanes checks each lane and that no two lanes share a kind or a
// file path.
func validateLanes(lanes []Lane) error {
	seenKinds := make(map[model.ContentKind]bool, len(lanes))
	seenPaths := make(map[string]model.ContentKind, len(lanes)*2)

	for _, lane := range lanes {
		if !lane.Kind.Valid() {
			return ErrInvalidLaneKind
		}
		if seenKinds[lane.Kind] {
			return fmt.Errorf("lane %s: %w", lane.Kind, ErrDuplicateLane)
		}
		seenKinds[lane.Kind] = true

		if !isHTTPURL(lane.SourceURL) {
			return fmt.Errorf("lane %s: %w: %q", lane.Kind, ErrInvalidSourceURL, lane.SourceURL)
		}
		if lane.DestinationFolder == "" || lane.DestinationFilename == "" || lane.ReportOutputPath == "" {
			return fmt.Errorf("lane %s: %w", lane.Kind, ErrEmptyLanePath)
		}

		req := lane.ReportRequest()
		for _, p := range []string{req.InputPath, req.OutputPath} {
			clean := filepath.Clean(p)
			if other, ok := seenPaths[clean]; ok {
				return fmt.Errorf("lane %s: %w with lane %s: %s", lane.Kind, ErrLanePathCollision, other, clean)
			}
			seenPaths[clean] = lane.Kind
		}
	}

	return nil
}

// isHTTPURL reports whether s is an absolute http or https URL with a host.
func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// isHostPort reports whether address is in "host:port" format with a
// port between 1 and 65535.
func isHostPort(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}
