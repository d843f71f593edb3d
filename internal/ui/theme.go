package ui

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

type Theme struct {
	Header      lipgloss.Style
	Status      lipgloss.Style
	PanelTitle  lipgloss.Style
	PanelBorder lipgloss.Style
	PanelBody   lipgloss.Style
	Caption     lipgloss.Style
	Notes       lipgloss.Style
	Accent      lipgloss.Style
	Current     lipgloss.Style
	Past        lipgloss.Style
	Upcoming    lipgloss.Style
	Fail        lipgloss.Style
	Muted       lipgloss.Style

	ProgressFrom color.Color
	ProgressTo   color.Color
}

func DefaultTheme() Theme {
	return ThemeForVariant("modern_arcade")
}

func ThemeForVariant(variant string) Theme {
	switch variant {
	case "cozy_clean":
		return cozyCleanTheme()
	case "retro_terminal":
		return retroTerminalTheme()
	default:
		return modernArcadeTheme()
	}
}

func modernArcadeTheme() Theme {
	amber := lipgloss.Color("#FFC857")
	mint := lipgloss.Color("#67F0A8")
	brick := lipgloss.Color("#FF6F91")
	ink := lipgloss.Color("#0E1420")
	slate := lipgloss.Color("#1B2740")
	powder := lipgloss.Color("#EAF2FF")
	blue := lipgloss.Color("#5EEBFF")
	border := lipgloss.Color("#4B5F8A")
	muted := lipgloss.Color("#9CAAC6")

	return Theme{
		Header: lipgloss.NewStyle().
			Background(ink).
			Foreground(powder).
			Padding(0, 1),
		Status: lipgloss.NewStyle().
			Background(slate).
			Foreground(powder).
			Padding(0, 1),
		PanelTitle: lipgloss.NewStyle().
			Foreground(blue).
			Bold(true),
		PanelBorder: lipgloss.NewStyle().
			Foreground(border),
		PanelBody: lipgloss.NewStyle().
			Foreground(powder),
		Caption: lipgloss.NewStyle().
			Foreground(muted).
			Italic(true),
		Notes: lipgloss.NewStyle().
			Foreground(amber),
		Accent: lipgloss.NewStyle().
			Foreground(blue).
			Bold(true),
		Current:  lipgloss.NewStyle().Foreground(mint).Bold(true),
		Past:     lipgloss.NewStyle().Foreground(muted),
		Upcoming: lipgloss.NewStyle().Foreground(border),
		Fail: lipgloss.NewStyle().
			Foreground(brick).
			Bold(true),
		Muted:        lipgloss.NewStyle().Foreground(muted),
		ProgressFrom: blue,
		ProgressTo:   mint,
	}
}

func cozyCleanTheme() Theme {
	honey := lipgloss.Color("#F2B872")
	sage := lipgloss.Color("#80C4A3")
	rose := lipgloss.Color("#D17A86")
	night := lipgloss.Color("#1E2430")
	slate := lipgloss.Color("#30394A")
	paper := lipgloss.Color("#F4F6FA")
	sky := lipgloss.Color("#86B6F6")
	muted := lipgloss.Color("#A3ACC2")

	return Theme{
		Header:       lipgloss.NewStyle().Background(night).Foreground(paper).Padding(0, 1),
		Status:       lipgloss.NewStyle().Background(slate).Foreground(paper).Padding(0, 1),
		PanelTitle:   lipgloss.NewStyle().Foreground(honey).Bold(true),
		PanelBorder:  lipgloss.NewStyle().Foreground(lipgloss.Color("#4A5972")),
		PanelBody:    lipgloss.NewStyle().Foreground(paper),
		Caption:      lipgloss.NewStyle().Foreground(muted).Italic(true),
		Notes:        lipgloss.NewStyle().Foreground(honey),
		Accent:       lipgloss.NewStyle().Foreground(sky).Bold(true),
		Current:      lipgloss.NewStyle().Foreground(sage).Bold(true),
		Past:         lipgloss.NewStyle().Foreground(muted),
		Upcoming:     lipgloss.NewStyle().Foreground(slate),
		Fail:         lipgloss.NewStyle().Foreground(rose).Bold(true),
		Muted:        lipgloss.NewStyle().Foreground(muted),
		ProgressFrom: sky,
		ProgressTo:   sage,
	}
}

func retroTerminalTheme() Theme {
	lime := lipgloss.Color("#9CF5A2")
	amber := lipgloss.Color("#E5D47A")
	red := lipgloss.Color("#FF6B6B")
	deep := lipgloss.Color("#07150A")
	forest := lipgloss.Color("#12301A")
	glow := lipgloss.Color("#C5F7C4")
	moss := lipgloss.Color("#73A17A")

	return Theme{
		Header:       lipgloss.NewStyle().Background(deep).Foreground(glow).Padding(0, 1),
		Status:       lipgloss.NewStyle().Background(forest).Foreground(glow).Padding(0, 1),
		PanelTitle:   lipgloss.NewStyle().Foreground(amber).Bold(true),
		PanelBorder:  lipgloss.NewStyle().Foreground(lipgloss.Color("#1F5C2F")),
		PanelBody:    lipgloss.NewStyle().Foreground(glow),
		Caption:      lipgloss.NewStyle().Foreground(moss),
		Notes:        lipgloss.NewStyle().Foreground(amber),
		Accent:       lipgloss.NewStyle().Foreground(lime).Bold(true),
		Current:      lipgloss.NewStyle().Foreground(lime).Bold(true),
		Past:         lipgloss.NewStyle().Foreground(moss),
		Upcoming:     lipgloss.NewStyle().Foreground(forest),
		Fail:         lipgloss.NewStyle().Foreground(red).Bold(true),
		Muted:        lipgloss.NewStyle().Foreground(moss),
		ProgressFrom: amber,
		ProgressTo:   lime,
	}
}
