package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	`             _            __ _`,
	`   ___ _   _| |__   ___  / _| | _____      __`,
	`  / __| | | | '_ \ / _ \| |_| |/ _ \ \ /\ / /`,
	` | (__| |_| | |_) |  __/|  _| | (_) \ V  V /`,
	`  \___|\__,_|_.__/ \___||_| |_|\___/ \_/\_/`,
}

// Teal to blue, one color per line.
var bannerColors = []string{"#2dd4bf", "#22d3ee", "#38bdf8", "#60a5fa", "#818cf8"}

// PrintBanner writes the cubeflow banner to w, colored when the terminal supports it.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(bannerColors[i])))
	}
	fmt.Fprintln(w)
}
