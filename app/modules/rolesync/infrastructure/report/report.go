// Package rolesyncreport renders a run's change log as an xlsx workbook.
package rolesyncreport

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	rolesyncservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/application"
	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet = "Summary"
	ChangesSheet = "Changes"
	SkippedSheet = "Skipped"

	// ChartCell anchors the role chart on the summary sheet.
	ChartCell = "D2"
)

// RoleNames maps role ids to display names. Unknown ids are shown as is.
type RoleNames map[rolesyncdomain.RoleID]string

func (n RoleNames) name(id rolesyncdomain.RoleID) string {
	if v, ok := n[id]; ok && v != "" {
		return v
	}
	return string(id)
}

func (n RoleNames) join(ids []rolesyncdomain.RoleID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = n.name(id)
	}
	return strings.Join(parts, ", ")
}

// Build writes the workbook for summary.
func Build(summary rolesyncservice.RunSummary, names RoleNames) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, sheet := range []string{ChangesSheet, SkippedSheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	if err := writeSummary(f, summary, header); err != nil {
		return nil, err
	}
	if err := writeChanges(f, summary.Changes, names, header); err != nil {
		return nil, err
	}
	if err := writeSkipped(f, summary.Skipped, header); err != nil {
		return nil, err
	}

	if counts := CountRoleChanges(summary.Changes, names); len(counts) > 0 {
		png, err := RenderRoleChart(counts)
		if err != nil {
			return nil, fmt.Errorf("render chart: %w", err)
		}
		if err := f.AddPictureFromBytes(SummarySheet, ChartCell, &excelize.Picture{
			Extension: ".png",
			File:      png,
			Format:    &excelize.GraphicOptions{AltText: "Role changes"},
		}); err != nil {
			return nil, fmt.Errorf("embed chart: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

func writeSummary(f *excelize.File, s rolesyncservice.RunSummary, header int) error {
	finished := ""
	if s.FinishedAt != nil {
		finished = s.FinishedAt.Format(time.RFC3339)
	}
	rows := [][]any{
		{"Run", s.ID.String()},
		{"Guild", string(s.GuildID)},
		{"Trigger", string(s.Trigger)},
		{"Dry run", s.DryRun},
		{"Members", s.MemberCount},
		{"Processed", s.Progress},
		{"Updated", s.Updated()},
		{"Skipped", len(s.Skipped)},
		{"Started", s.StartedAt.Format(time.RFC3339)},
		{"Finished", finished},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(1, len(rows))
	if err := f.SetCellStyle(SummarySheet, "A1", last, header); err != nil {
		return err
	}
	return f.SetColWidth(SummarySheet, "A", "B", 22)
}

func writeChanges(f *excelize.File, changes []rolesyncservice.ChangeLogEntry, names RoleNames, header int) error {
	if err := f.SetSheetRow(ChangesSheet, "A1", &[]any{"User ID", "Display name", "Added", "Removed", "Nickname"}); err != nil {
		return fmt.Errorf("write changes header: %w", err)
	}
	for i, c := range changes {
		nick := ""
		if c.Nickname != nil {
			nick = *c.Nickname
			if nick == "" {
				nick = "(cleared)"
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{string(c.UserID), c.DisplayName, names.join(c.Included), names.join(c.Excluded), nick}
		if err := f.SetSheetRow(ChangesSheet, cell, &row); err != nil {
			return fmt.Errorf("write change %s: %w", c.UserID, err)
		}
	}
	if err := f.SetCellStyle(ChangesSheet, "A1", "E1", header); err != nil {
		return err
	}
	return f.SetColWidth(ChangesSheet, "A", "E", 24)
}

func writeSkipped(f *excelize.File, skipped []rolesyncservice.Skip, header int) error {
	if err := f.SetSheetRow(SkippedSheet, "A1", &[]any{"User ID", "Reason"}); err != nil {
		return fmt.Errorf("write skipped header: %w", err)
	}
	for i, s := range skipped {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SkippedSheet, cell, &[]any{string(s.UserID), s.Reason}); err != nil {
			return fmt.Errorf("write skip %s: %w", s.UserID, err)
		}
	}
	if err := f.SetCellStyle(SkippedSheet, "A1", "B1", header); err != nil {
		return err
	}
	return f.SetColWidth(SkippedSheet, "A", "B", 30)
}

// RoleCount is how often a role was added and removed in a run.
type RoleCount struct {
	Role    string
	Added   int
	Removed int
}

// CountRoleChanges tallies role changes, busiest first.
func CountRoleChanges(changes []rolesyncservice.ChangeLogEntry, names RoleNames) []RoleCount {
	byRole := map[rolesyncdomain.RoleID]*RoleCount{}
	get := func(id rolesyncdomain.RoleID) *RoleCount {
		c, ok := byRole[id]
		if !ok {
			c = &RoleCount{Role: names.name(id)}
			byRole[id] = c
		}
		return c
	}
	for _, ch := range changes {
		for _, id := range ch.Included {
			get(id).Added++
		}
		for _, id := range ch.Excluded {
			get(id).Removed++
		}
	}

	out := make([]RoleCount, 0, len(byRole))
	for _, c := range byRole {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].Added+out[i].Removed, out[j].Added+out[j].Removed
		if ti != tj {
			return ti > tj
		}
		return out[i].Role < out[j].Role
	})
	return out
}
