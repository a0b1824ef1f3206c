// Package ui is the terminal shell around the pairing server. Render is a
// pure function of View so any front end can reuse it.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/moyoez/retadi-server/netaddr"
	"github.com/moyoez/retadi-server/qr"
	"github.com/moyoez/retadi-server/session"
	"github.com/moyoez/retadi-server/types"
)

type Tab int

const (
	TabConnect Tab = iota
	TabApplets
	TabSettings
)

var tabNames = [...]string{"Connect", "Applets", "Settings"}

func (t Tab) String() string {
	if t < 0 || int(t) >= len(tabNames) {
		return "Unknown"
	}
	return tabNames[t]
}

// View is everything a frame needs.
type View struct {
	Tab        Tab
	Session    session.Snapshot
	QR         *qr.Bitmap
	QRErr      error
	Starting   bool
	Err        error
	Notice     string
	Port       uint16
	Protocol   string
	AssetRoot  string
	Interfaces []netaddr.NetworkInfo
	Devices    []types.ConnectedDevice
	Version    string
}

var (
	accent    = lipgloss.Color("#00FFC3")
	altAccent = lipgloss.Color("#004736")
	bgCard    = lipgloss.Color("#333333")

	brandStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)
	tabStyle     = lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color("250")).Background(bgCard)
	activeTab    = tabStyle.Foreground(lipgloss.Color("15")).Background(altAccent).Bold(true)
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(1, 2)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	buttonStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 3).Foreground(lipgloss.Color("#222222")).Background(accent)
	qrStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#000000"))
)

// Render draws one frame.
func Render(v View) string {
	var body string
	switch v.Tab {
	case TabApplets:
		body = renderApplets()
	case TabSettings:
		body = renderSettings(v)
	default:
		body = renderConnect(v)
	}

	parts := []string{renderTabBar(v.Tab), "", body}
	if v.Notice != "" {
		parts = append(parts, "", warnStyle.Render(v.Notice))
	}
	parts = append(parts, "", dimStyle.Render("tab/1-3 switch • s start • x stop • +/- port • q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderTabBar(current Tab) string {
	cells := []string{brandStyle.Render("ReTADI") + "  "}
	for i, name := range tabNames {
		style := tabStyle
		if Tab(i) == current {
			style = activeTab
		}
		cells = append(cells, style.Render(fmt.Sprintf("%d %s", i+1, name)), " ")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func renderConnect(v View) string {
	lines := []string{headingStyle.Render("Device Connection")}

	if !v.Session.Running {
		if v.Starting {
			lines = append(lines, dimStyle.Render(fmt.Sprintf("Starting server on port %d...", v.Port)))
		} else {
			lines = append(lines, buttonStyle.Render("Start Server")+dimStyle.Render("  press s"))
		}
		if v.Err != nil {
			lines = append(lines, "", errorStyle.Render("Server failed to start: "+v.Err.Error()))
		}
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	card := []string{
		brandStyle.Render("Server Running"),
		labelStyle.Render(v.Session.URL),
	}
	switch {
	case v.QR != nil:
		card = append(card, "", dimStyle.Render("Scan to Connect"), RenderQR(v.QR))
	case v.QRErr != nil:
		card = append(card, "", warnStyle.Render("QR unavailable: "+v.QRErr.Error()))
	}
	if len(v.Devices) > 0 {
		card = append(card, "", dimStyle.Render("Recent devices"))
		for _, d := range v.Devices {
			card = append(card, labelStyle.Render(fmt.Sprintf("• %s  %s", d.DisplayName(), d.ConnectedAt.Format("15:04:05"))))
		}
	}
	lines = append(lines, cardStyle.Render(lipgloss.JoinVertical(lipgloss.Center, card...)))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderApplets() string {
	lines := []string{
		headingStyle.Render("Applets"),
		dimStyle.Render("Manage and install applets for your device"),
		"",
	}
	for i := 1; i <= 5; i++ {
		entry := lipgloss.JoinVertical(lipgloss.Left,
			labelStyle.Render(fmt.Sprintf("Applet %d", i)),
			dimStyle.Render("Description of the applet functionality"),
		)
		lines = append(lines, cardStyle.Padding(0, 1).Render(
			lipgloss.JoinHorizontal(lipgloss.Center, entry, "   ", buttonStyle.Padding(0, 1).Render("Install")),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSettings(v View) string {
	row := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-12s", label)) + dimStyle.Render(value)
	}
	server := []string{
		brandStyle.Render("Server Settings"),
		row("Port:", fmt.Sprintf("%d", v.Port)),
		row("Protocol:", v.Protocol),
		row("Assets:", v.AssetRoot),
	}
	if v.Session.Running && v.Session.Port != v.Port {
		server = append(server, warnStyle.Render(fmt.Sprintf("Running on %d; restart to apply", v.Session.Port)))
	}

	network := []string{brandStyle.Render("Network")}
	if len(v.Interfaces) == 0 {
		network = append(network, dimStyle.Render("No LAN interface found; only this machine can connect"))
	}
	for _, info := range v.Interfaces {
		network = append(network, row(info.InterfaceName, fmt.Sprintf("%s (%s)", info.IPAddress, info.Number)))
	}

	about := []string{
		brandStyle.Render("About"),
		labelStyle.Render("ReTADI Server v" + v.Version),
		dimStyle.Render("Remote Tablet Display Interface"),
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		headingStyle.Render("Settings"),
		cardStyle.Render(strings.Join(server, "\n")),
		cardStyle.Render(strings.Join(network, "\n")),
		cardStyle.Render(strings.Join(about, "\n")),
	)
}

// RenderQR draws the symbol with half blocks, two module rows per line.
// Light modules are drawn as blocks so the code scans on dark terminals.
func RenderQR(b *qr.Bitmap) string {
	var sb strings.Builder
	for my := 0; my < b.Modules; my += 2 {
		for mx := 0; mx < b.Modules; mx++ {
			top := !b.Module(mx, my)
			bottom := my+1 < b.Modules && !b.Module(mx, my+1)
			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		if my+2 < b.Modules {
			sb.WriteByte('\n')
		}
	}
	return qrStyle.Render(sb.String())
}
