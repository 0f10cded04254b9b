package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"racoonsmeal/internal/apiclient"
	"racoonsmeal/internal/authstate"
	"racoonsmeal/internal/model"
	"racoonsmeal/pkg/apierror"
)

var errNotLoggedIn = errors.New("not logged in: run `racoonsmeal login` first")

var (
	primary = lipgloss.Color("#7C3AED")
	success = lipgloss.Color("#10B981")
	warning = lipgloss.Color("#F59E0B")
	danger  = lipgloss.Color("#EF4444")
	muted   = lipgloss.Color("#6B7280")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(primary)
	labelStyle   = lipgloss.NewStyle().Foreground(muted).Width(16)
	okStyle      = lipgloss.NewStyle().Foreground(success).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(warning).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(danger).Bold(true)
	noticeStyle  = lipgloss.NewStyle().Foreground(warning)
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)
)

// noticeNavigator renders forced navigation as a hint for the next command.
type noticeNavigator struct {
	w io.Writer
}

func (n noticeNavigator) Navigate(path string) {
	var hint string
	switch path {
	case authstate.PathLogin:
		hint = "You are signed out. Run `racoonsmeal login` to sign in."
	case authstate.PathCompleteProfile:
		hint = "Your profile is incomplete. Run `racoonsmeal profile complete` to finish it."
	case authstate.PathHome:
		hint = "Your profile is complete."
	default:
		return
	}
	fmt.Fprintln(n.w, noticeStyle.Render(hint))
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func row(label string, value string) string {
	return labelStyle.Render(label) + value
}

func formatUser(user *model.User) string {
	lines := []string{row("Username:", user.Username)}
	if user.Email != "" {
		lines = append(lines, row("Email:", user.Email))
	}
	if name := strings.TrimSpace(user.FirstName + " " + user.LastName); name != "" {
		lines = append(lines, row("Name:", name))
	}
	if user.DateOfBirth != "" {
		lines = append(lines, row("Born:", user.DateOfBirth))
	}
	return strings.Join(lines, "\n")
}

func formatStatus(status apiclient.ProfileStatus) string {
	switch {
	case !status.Exists:
		return warnStyle.Render("missing")
	case !status.Complete:
		return warnStyle.Render("incomplete")
	default:
		return okStyle.Render("complete")
	}
}

func formatProfile(profile *model.Profile) string {
	lines := []string{row("Bio:", profile.Bio)}
	if profile.Age > 0 {
		lines = append(lines, row("Age:", fmt.Sprintf("%d", profile.Age)))
	}
	if profile.Gender != "" {
		lines = append(lines, row("Gender:", profile.Gender))
	}
	if profile.HeightCM > 0 {
		lines = append(lines, row("Height:", fmt.Sprintf("%.1f cm", profile.HeightCM)))
	}
	if profile.WeightKG > 0 {
		lines = append(lines, row("Weight:", fmt.Sprintf("%.1f kg", profile.WeightKG)))
	}
	if profile.ActivityLevel != "" {
		lines = append(lines, row("Activity:", profile.ActivityLevel))
	}
	if profile.Goal != "" {
		lines = append(lines, row("Goal:", profile.Goal))
	}
	if profile.ProfilePicture != "" {
		lines = append(lines, row("Picture:", profile.ProfilePicture))
	}
	lines = append(lines, row("Followers:", fmt.Sprintf("%d", len(profile.Followers))))
	lines = append(lines, row("Following:", fmt.Sprintf("%d", len(profile.Following))))
	return strings.Join(lines, "\n")
}

// FormatError renders err for the terminal, listing field errors one per line.
func FormatError(err error) string {
	var apiErr *apierror.APIError
	if !errors.As(err, &apiErr) || len(apiErr.Fields) == 0 {
		return errorStyle.Render("Error: ") + err.Error()
	}

	keys := make([]string, 0, len(apiErr.Fields))
	for key := range apiErr.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := []string{errorStyle.Render("Error: the request was rejected")}
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("  %s: %s", key, strings.Join(apiErr.Fields[key], " ")))
	}
	return strings.Join(lines, "\n")
}
