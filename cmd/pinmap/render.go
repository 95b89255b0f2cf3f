package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/kass/go-pinmap/pkg/controller"
	"github.com/kass/go-pinmap/pkg/editor"
	"github.com/kass/go-pinmap/pkg/models"
	"github.com/kass/go-pinmap/pkg/pins"
	"github.com/kass/go-pinmap/pkg/viewport"
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6")).
			Background(lipgloss.Color("#282A36")).
			Padding(0, 1)

	subtitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	starStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	mapStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#BD93F9"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6272A4")).
			Padding(0, 1).
			Width(panelWidth - 2)

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#FF6347")).
			PaddingLeft(1).
			MarginBottom(1)

	cursorStyle = lipgloss.NewStyle().Reverse(true)
	draftStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F1FA8C"))

	markerStyles = map[pins.Color]lipgloss.Style{
		pins.ColorSelf:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6347")),
		pins.ColorOther: lipgloss.NewStyle().Foreground(lipgloss.Color("#6A5ACD")),
	}
)

// graticuleSteps are the grid spacings in degrees, one per two zoom levels
var graticuleSteps = []float64{30, 15, 5, 2, 1, 0.5, 0.2, 0.1, 0.05, 0.02, 0.01}

func graticuleStep(zoom float64) float64 {
	i := int(zoom / 2)
	i = clamp(i, 0, len(graticuleSteps)-1)
	return graticuleSteps[i]
}

// markerGlyph picks a symbol whose weight follows the icon size
func markerGlyph(size float64) string {
	switch {
	case size < 21:
		return "•"
	case size < 49:
		return "●"
	default:
		return "▼"
	}
}

func (m model) View() string {
	st := m.ctrl.State()

	var panel string
	switch m.mode {
	case modeHelp:
		panel = m.helpView()
	case modeDraft:
		panel = m.draftView(st)
	case modeLogin:
		panel = m.accountView("Log in", m.login, st.Login, st)
	case modeRegister:
		panel = m.accountView("Register", m.register, st.Register, st)
	default:
		panel = m.popupsView(st)
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		mapStyle.Render(m.mapView(st)),
		panelStyle.Height(m.screen.Height).Render(panel),
	)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusView(st))
}

func (m model) mapView(st controller.State) string {
	vp := st.Viewport
	w, h := m.screen.Width, m.screen.Height

	grid := make([][]string, h)
	for r := range grid {
		grid[r] = make([]string, w)
	}
	m.drawGraticule(grid, vp)

	markers, err := m.ctrl.MarkersWithin(m.screen.Bounds(vp))
	if err != nil {
		markers = m.ctrl.Markers()
	}
	for _, mk := range markers {
		col, row, ok := m.screen.Project(vp, models.Location{Lat: mk.Lat, Lon: mk.Long})
		if !ok {
			continue
		}
		style := markerStyles[mk.Color]
		if st.Popups.IsOpen(mk.ID) {
			style = style.Bold(true).Underline(true)
		}
		grid[row][col] = style.Render(markerGlyph(mk.IconSize))
	}

	if d := st.Editor.Draft(); d != nil {
		if col, row, ok := m.screen.Project(vp, models.Location{Lat: d.Lat, Lon: d.Long}); ok {
			grid[row][col] = draftStyle.Render("✚")
		}
	}

	if cell := grid[m.cursorRow][m.cursorCol]; cell == "" {
		grid[m.cursorRow][m.cursorCol] = cursorStyle.Render("+")
	} else {
		grid[m.cursorRow][m.cursorCol] = cursorStyle.Render(cell)
	}

	var b strings.Builder
	for r, row := range grid {
		for _, cell := range row {
			if cell == "" {
				cell = " "
			}
			b.WriteString(cell)
		}
		if r < h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// drawGraticule draws meridians and parallels at a spacing that suits the zoom
func (m model) drawGraticule(grid [][]string, vp viewport.Viewport) {
	step := graticuleStep(vp.Zoom)
	w, h := m.screen.Width, m.screen.Height

	meridian := make([]bool, w)
	for c := 0; c < w-1; c++ {
		a := m.screen.Unproject(vp, c, 0).Lon
		b := m.screen.Unproject(vp, c+1, 0).Lon
		meridian[c] = math.Floor(a/step) != math.Floor(b/step)
	}
	parallel := make([]bool, h)
	for r := 0; r < h-1; r++ {
		a := m.screen.Unproject(vp, 0, r).Lat
		b := m.screen.Unproject(vp, 0, r+1).Lat
		parallel[r] = math.Floor(a/step) != math.Floor(b/step)
	}

	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			switch {
			case meridian[c] && parallel[r]:
				grid[r][c] = dimStyle.Render("┼")
			case meridian[c]:
				grid[r][c] = dimStyle.Render("│")
			case parallel[r]:
				grid[r][c] = dimStyle.Render("─")
			}
		}
	}
}

func (m model) popupsView(st controller.State) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("📍 Pins"))
	b.WriteString("\n\n")

	open := st.Popups.OpenIDs()
	if len(open) == 0 {
		loc := m.screen.Unproject(st.Viewport, m.cursorCol, m.cursorRow)
		b.WriteString(dimStyle.Render("Move with the arrows and press space on a marker to open it."))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("Cursor  %.4f, %.4f\n", loc.Lat, loc.Lon))
		if st.Editor.Active() {
			b.WriteString("\n" + infoStyle.Render("Unsaved pin, press e to edit"))
		}
		return b.String()
	}

	for i := len(open) - 1; i >= 0; i-- {
		pin, ok := st.Pins.Get(open[i])
		if !ok {
			continue
		}
		b.WriteString(popupStyle.Render(m.pinCard(pin)))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("x closes the newest"))
	return b.String()
}

func (m model) pinCard(p models.Pin) string {
	lines := []string{
		subtitleStyle.Render(p.Title),
		starStyle.Render(stars(p.Rating)),
	}
	if p.Desc != "" {
		lines = append(lines, lipgloss.NewStyle().Width(panelWidth-8).Render(p.Desc))
	}
	if url := m.images.ImageURL(p); url != "" {
		lines = append(lines, dimStyle.Render(url))
	}
	lines = append(lines, fmt.Sprintf("Created by %s, %s", p.Username, humanize.Time(p.CreatedAt)))
	return strings.Join(lines, "\n")
}

func (m model) draftView(st controller.State) string {
	d := st.Editor.Draft()
	if d == nil {
		return dimStyle.Render("No pin in progress")
	}

	label := func(field int, text string) string {
		if m.draft.focus == field {
			return subtitleStyle.Render("› " + text)
		}
		return "  " + text
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("New pin"))
	b.WriteString(fmt.Sprintf("\n%s\n\n", dimStyle.Render(fmt.Sprintf("at %.4f, %.4f", d.Lat, d.Long))))
	b.WriteString(label(draftTitle, "Title") + "\n" + m.draft.title.View() + "\n")
	b.WriteString(label(draftDesc, "Description") + "\n" + m.draft.desc.View() + "\n")
	b.WriteString(label(draftRating, fmt.Sprintf("Rating (%d-%d)", editor.RatingOptions[0], editor.RatingOptions[len(editor.RatingOptions)-1])) + "\n" + m.draft.rating.View() + "\n")
	b.WriteString(label(draftImage, "Image") + "\n" + m.draft.image.View() + "\n")
	if d.Image != nil {
		b.WriteString(successStyle.Render(fmt.Sprintf("  ✓ %s (%s, %s)", d.Image.Name, d.Image.MIME, humanize.Bytes(uint64(len(d.Image.Data))))) + "\n")
	}
	b.WriteString("\n")

	switch {
	case d.Submitting:
		b.WriteString(m.spinner.View() + " Saving...")
	case m.formErr != "":
		b.WriteString(errorStyle.Render(m.formErr))
	case d.Err != nil:
		b.WriteString(errorStyle.Render("Something went wrong: " + d.Err.Error()))
	default:
		b.WriteString(dimStyle.Render("tab next · ctrl+s add pin · esc discard"))
	}
	return b.String()
}

func (m model) accountView(title string, form accountForm, status controller.FormStatus, st controller.State) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")
	for i, in := range form.inputs {
		name := in.Placeholder
		if i == form.focus {
			name = subtitleStyle.Render("› " + name)
		} else {
			name = "  " + name
		}
		b.WriteString(name + "\n" + in.View() + "\n")
	}
	b.WriteString("\n")

	switch {
	case status.Pending:
		b.WriteString(m.spinner.View() + " Please wait...")
	case m.formErr != "":
		b.WriteString(errorStyle.Render(m.formErr))
	case status.Err != nil:
		b.WriteString(errorStyle.Render("Something went wrong!"))
	case status.Success:
		b.WriteString(successStyle.Render(st.Notice.Text))
	default:
		b.WriteString(dimStyle.Render("enter submit · esc cancel"))
	}
	return b.String()
}

func (m model) helpView() string {
	self := markerStyles[pins.ColorSelf].Render("●")
	other := markerStyles[pins.ColorOther].Render("●")
	lines := []string{
		titleStyle.Render("How it works"),
		"",
		"Log in first with l, or create an",
		"account with r.",
		"",
		"Move the cursor with the arrows and",
		"press enter to add a pin there.",
		"",
		"Press space on a marker to open its",
		"card, again to close it.",
		"",
		self + " your pins   " + other + " everyone else",
		"",
		subtitleStyle.Render("Keys"),
		"arrows  move cursor",
		"H J K L pan the map",
		"+ -     zoom",
		"enter   new pin here",
		"space   open/close marker",
		"x       close newest card",
		"e       back to unsaved pin",
		"c       centre cursor",
		"l r o   log in, register, log out",
		"q       quit",
		"",
		dimStyle.Render("any key to close"),
	}
	return strings.Join(lines, "\n")
}

func (m model) statusView(st controller.State) string {
	user := dimStyle.Render("not logged in")
	if st.Session != nil {
		user = successStyle.Render("● " + st.Session.Username)
	}

	vp := st.Viewport
	parts := []string{
		user,
		fmt.Sprintf("%.4f, %.4f z%.0f", vp.Latitude, vp.Longitude, vp.Zoom),
		fmt.Sprintf("%d pins", st.Pins.Len()),
	}
	if st.LoadingPins {
		parts = append(parts, m.spinner.View()+" loading pins")
	}
	line := strings.Join(parts, dimStyle.Render(" │ "))

	var notice string
	switch st.Notice.Level {
	case controller.LevelError:
		notice = errorStyle.Render("✗ " + st.Notice.Text)
	case controller.LevelWarning:
		notice = infoStyle.Render("! " + st.Notice.Text)
	case controller.LevelInfo:
		notice = successStyle.Render("✓ " + st.Notice.Text)
	default:
		notice = dimStyle.Render("? for help")
	}
	return line + "\n" + notice
}
