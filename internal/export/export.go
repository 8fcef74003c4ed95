package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-portfolio/internal/portfolio"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format      ExportFormat
	Owner       string
	HideDust    bool
	DustEpsilon float64
	Query       string
	OutputDir   string
}

// PositionExporter writes a settled position list to disk
type PositionExporter struct {
	logger *zap.Logger
}

// NewPositionExporter creates a new position exporter
func NewPositionExporter(logger *zap.Logger) *PositionExporter {
	return &PositionExporter{
		logger: logger,
	}
}

// ExportPositions exports positions based on the provided options. The same
// view filters the terminal renders with (dust threshold, free-text query)
// apply to the exported set.
func (pe *PositionExporter) ExportPositions(positions []portfolio.Position, options ExportOptions) (string, error) {
	filtered := portfolio.ApplyView(positions, portfolio.ViewOptions{
		HideDust:    options.HideDust,
		DustEpsilon: options.DustEpsilon,
		Query:       options.Query,
	})

	if len(filtered) == 0 {
		return "", fmt.Errorf("no positions match the export criteria")
	}

	filename := pe.generateFilename(options)
	outputPath := filepath.Join(options.OutputDir, filename)

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = pe.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = pe.exportToJSON(filtered, options.Owner, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}

	if err != nil {
		return "", err
	}

	pe.logger.Info("Positions exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

// generateFilename creates a filename based on export options
func (pe *PositionExporter) generateFilename(options ExportOptions) string {
	timestamp := time.Now().Format("20060102_150405")

	prefix := "positions"
	if options.Owner != "" && len(options.Owner) >= 8 {
		prefix += "_" + options.Owner[:8]
	}

	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

// CSVHeaders returns the column headers for a position export
func CSVHeaders() []string {
	return []string{"mint", "symbol", "name", "amount", "decimals", "metadata_uri", "image", "attached"}
}

func positionToCSV(p portfolio.Position) []string {
	return []string{
		p.Mint.String(),
		p.Symbol,
		p.Name,
		p.AmountText,
		fmt.Sprintf("%d", p.Decimals),
		p.MetadataURI,
		p.Image,
		fmt.Sprintf("%t", p.Attached),
	}
}

// exportToCSV exports positions to CSV format
func (pe *PositionExporter) exportToCSV(positions []portfolio.Position, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range positions {
		if err := writer.Write(positionToCSV(p)); err != nil {
			return fmt.Errorf("failed to write position: %w", err)
		}
	}

	return nil
}

// exportToJSON exports positions to JSON format with summary metadata
func (pe *PositionExporter) exportToJSON(positions []portfolio.Position, owner string, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime    time.Time            `json:"export_time"`
		Owner         string               `json:"owner,omitempty"`
		PositionCount int                  `json:"position_count"`
		Positions     []exportedPosition   `json:"positions"`
		Summary       ExportSummary        `json:"summary"`
	}{
		ExportTime:    time.Now(),
		Owner:         owner,
		PositionCount: len(positions),
		Positions:     toExported(positions),
		Summary:       calculateSummary(positions),
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

type exportedPosition struct {
	Mint        string  `json:"mint"`
	Symbol      string  `json:"symbol,omitempty"`
	Name        string  `json:"name,omitempty"`
	Amount      float64 `json:"amount"`
	AmountText  string  `json:"amount_text"`
	Decimals    uint8   `json:"decimals"`
	MetadataURI string  `json:"metadata_uri,omitempty"`
	Image       string  `json:"image,omitempty"`
	Attached    bool    `json:"attached"`
}

func toExported(positions []portfolio.Position) []exportedPosition {
	out := make([]exportedPosition, 0, len(positions))
	for _, p := range positions {
		out = append(out, exportedPosition{
			Mint:        p.Mint.String(),
			Symbol:      p.Symbol,
			Name:        p.Name,
			Amount:      p.UIAmount,
			AmountText:  p.AmountText,
			Decimals:    p.Decimals,
			MetadataURI: p.MetadataURI,
			Image:       p.Image,
			Attached:    p.Attached,
		})
	}
	return out
}

// ExportSummary contains summary statistics for exported positions
type ExportSummary struct {
	TotalPositions int `json:"total_positions"`
	WithMetadata   int `json:"with_metadata"`
	WithImage      int `json:"with_image"`
	Detached       int `json:"detached"`
}

func calculateSummary(positions []portfolio.Position) ExportSummary {
	summary := ExportSummary{
		TotalPositions: len(positions),
	}

	for _, p := range positions {
		if p.Attached {
			summary.WithMetadata++
		} else {
			summary.Detached++
		}
		if p.Image != "" {
			summary.WithImage++
		}
	}

	return summary
}
