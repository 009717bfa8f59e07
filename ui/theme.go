package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

type DubberTheme struct{}

var _ fyne.Theme = (*DubberTheme)(nil)

func (t *DubberTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameButton:
		return color.NRGBA{R: 236, G: 72, B: 153, A: 255} // Pink
	case theme.ColorNameSuccess:
		return color.NRGBA{R: 34, G: 197, B: 94, A: 255}
	}
	// Background and foreground follow the system light/dark variant.
	return theme.DefaultTheme().Color(name, variant)
}

func (t *DubberTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *DubberTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *DubberTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 8
	case theme.SizeNameInnerPadding:
		return 4
	case theme.SizeNameText:
		return 14
	}
	return theme.DefaultTheme().Size(name)
}
