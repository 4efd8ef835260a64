package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/phillip-england/locsetup/internal/csvimport"
	"github.com/phillip-england/locsetup/internal/locations"
	"github.com/phillip-england/locsetup/internal/logger"
)

// ExpectedHeaders are the columns a complete location import carries.
var ExpectedHeaders = []string{
	"Location Name",
	"Title",
	"Subtitle",
	"Motto",
	"Address 1",
	"Address 2",
	"City/Town",
	"State/Province",
	"Postal Code",
	"Country",
	"Phone Number",
	"Fax Number",
	"Email",
	"Category",
	"Primary Thumbnail",
	"Primary Thumbnail Alt-Text",
	"Primary Logo",
	"Primary Logo Alt-Text",
	"Secondary Thumbnail",
	"Secondary Thumbnail Alt-Text",
	"Secondary Logo",
	"Secondary Logo Alt-Text",
}

type Result struct {
	Tasks          []Task
	MissingHeaders []string
}

// MissingHeaders returns the expected headers that headers does not contain.
func MissingHeaders(headers []string) []string {
	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[strings.TrimSpace(h)] = struct{}{}
	}
	var missing []string
	for _, expected := range ExpectedHeaders {
		if _, ok := present[expected]; !ok {
			missing = append(missing, expected)
		}
	}
	return missing
}

// Build turns every row of table into a Task. Missing expected headers are logged and
// reported but never stop the build.
func Build(ctx context.Context, table csvimport.Table, features FeatureSet) (Result, error) {
	log := logger.FromContext(ctx)

	if err := checkTabular(table); err != nil {
		log.Error("csv import rejected", "error", err)
		return Result{}, err
	}

	missing := MissingHeaders(table.Headers)
	if len(missing) > 0 {
		log.Warn("csv import is missing expected headers", "missing", strings.Join(missing, ", "))
	}

	out := make([]Task, 0, len(table.Rows))
	for _, row := range table.Rows {
		out = append(out, BuildTask(row, features))
	}

	log.Debug("built tasks", "rows", len(table.Rows), "features", len(features.Enabled()))
	return Result{Tasks: out, MissingHeaders: missing}, nil
}

func BuildTask(row locations.Row, features FeatureSet) Task {
	loc, display := locations.Normalize(row)

	task := Task{
		Location: Subtask{
			Title:   "Location Setup",
			Body:    loc.Body(),
			Display: display,
		},
	}

	for _, kind := range ImageKinds {
		url := row[kind.Label()]
		if strings.TrimSpace(url) == "" {
			continue
		}
		s := Subtask{
			Title: kind.Title(),
			Body:  map[string]any{"url": url, "name": loc.Name},
			Display: []DisplayListItem{
				{Key: kind.Label(), Value: url},
				{Key: kind.AltHeader(), Value: row[kind.AltHeader()]},
			},
		}
		*task.image(kind) = &s
	}

	return task.WithFeatures(features)
}

func checkTabular(table csvimport.Table) error {
	if len(table.Headers) == 0 {
		return fmt.Errorf("%w: no headers", csvimport.ErrNotTabular)
	}
	for i, row := range table.Rows {
		for _, h := range table.Headers {
			if _, ok := row[h]; !ok {
				return fmt.Errorf("%w: row %d has no %q column", csvimport.ErrNotTabular, i+1, h)
			}
		}
	}
	return nil
}
