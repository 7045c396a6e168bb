package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/openmined/dirmonitor/internal/config"
	"github.com/openmined/dirmonitor/internal/version"
)

var (
	cyan  = color.New(color.FgHiCyan, color.Bold).SprintFunc()
	green = color.New(color.FgHiGreen).SprintFunc()
)

const configRowFormat = "%-25s%v\n"

func showHeader(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, strings.Repeat("-", 42))
	fmt.Fprintln(w, cyan("Directory Monitor"))
	fmt.Fprintln(w, "Monitors a set of directories for any updates")
	fmt.Fprintln(w, "Version:", version.Short())
	fmt.Fprintln(w, "Start time: ", time.Now().Format(time.DateTime))
	fmt.Fprintln(w, "CONFIG VALUES: ")
	for _, row := range configRows(cfg) {
		fmt.Fprintf(w, configRowFormat, row[0], green(row[1]))
	}
}

// configRows returns the effective settings sorted by key.
func configRows(cfg *config.Config) [][2]string {
	rows := [][2]string{
		{config.KeyBackend, cfg.Backend},
		{"config", cfg.Path},
		{config.KeyDirectories, fmt.Sprint(cfg.Directories)},
		{config.KeyLockFile, cfg.LockFile},
		{config.KeyLogFile, cfg.LogFile},
		{config.KeyPollingTime, fmt.Sprint(cfg.PollingTime)},
		{config.KeyReadyLog, cfg.ReadyLog},
		{config.KeyTick, cfg.Tick.String()},
	}
	return rows
}
