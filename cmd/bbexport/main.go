/*
DESCRIPTION
  bbexport decodes blackbox flight data recorder logs and exports the main
  frame stream of each log session as CSV. It can optionally summarise
  decoding statistics and loop-time jitter, and watch a directory for new
  logs to export as they appear.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main is a CSV exporter for blackbox flight data logs.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/flightlog/blackbox"
	"github.com/ausocean/flightlog/session"
	"github.com/ausocean/utils/logging"
)

// Current software version.
const version = "v1.0.0"

// Logging configuration.
const (
	logPath      = "bbexport.log"
	logMaxSize   = 50 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logSuppress  = true
)

// Log file extensions recognised in watch mode.
var logExtensions = []string{".bbl", ".bfl", ".txt"}

func main() {
	var (
		inPath      = flag.String("in", "", "path of the blackbox log to export")
		outDir      = flag.String("out", ".", "directory CSV files are written to")
		raw         = flag.Bool("raw", false, "export raw field deltas without prediction")
		summary     = flag.Bool("summary", false, "print decoding statistics and loop-time jitter")
		watchDir    = flag.String("watch", "", "watch a directory and export each new log")
		verbosity   = flag.Int("v", int(logging.Info), "logging verbosity")
		showVersion = flag.Bool("version", false, "show version")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Create lumberjack logger to handle logging to file.
	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}

	log := logging.New(int8(*verbosity), io.MultiWriter(fileLog, os.Stderr), logSuppress)

	log.Info("starting bbexport", "version", version)

	if *watchDir != "" {
		watch(*watchDir, *outDir, *raw, *summary, log)
		return
	}

	if *inPath == "" {
		log.Fatal("no input log; use -in or -watch")
	}

	err := export(*inPath, *outDir, *raw, *summary, log)
	if err != nil {
		log.Fatal("export failed", "error", err.Error())
	}
}

// watch exports every recognised log file created in dir until interrupted.
func watch(dir, outDir string, raw, summary bool, log logging.Logger) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Fatal("could not create watcher", "error", err.Error())
	}
	defer watcher.Close()

	err = watcher.Add(dir)
	if err != nil {
		log.Fatal("could not watch directory", "directory", dir, "error", err.Error())
	}
	log.Info("watching for logs", "directory", dir)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) || !isLogFile(event.Name) {
				continue
			}
			log.Info("new log", "path", event.Name)
			err := export(event.Name, outDir, raw, summary, log)
			if err != nil {
				log.Error("export failed", "path", event.Name, "error", err.Error())
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error("watcher error", "error", err.Error())
		}
	}
}

// isLogFile reports whether path has a recognised log extension.
func isLogFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range logExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// export decodes every session in the log at inPath, writing one CSV per
// session into outDir.
func export(inPath, outDir string, raw, summary bool, log logging.Logger) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}

	ranges, err := session.Split(data)
	if err != nil {
		return err
	}
	log.Info("split log", "path", inPath, "sessions", len(ranges))

	base := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))
	for i, r := range ranges {
		outPath := filepath.Join(outDir, fmt.Sprintf("%s.%02d.csv", base, i+1))
		err := exportSession(data, r, outPath, raw, summary, log)
		if err != nil {
			return err
		}
	}
	return nil
}

// exportSession decodes one log session and writes its main frames as CSV.
func exportSession(data []byte, r session.Range, outPath string, raw, summary bool, log logging.Logger) error {
	dec := blackbox.New(data, blackbox.WithLogger(log))

	err := dec.ParseHeader(r.Start, r.End)
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()

	err = w.Write(dec.FrameDefs().I.Name)
	if err != nil {
		return err
	}

	var (
		times    []float64
		writeErr error
	)
	onFrame := func(valid bool, frame []int32, typ byte, offset, size int) {
		if !valid || (typ != blackbox.FrameIntra && typ != blackbox.FrameInter) {
			return
		}
		row := make([]string, len(frame))
		for i, v := range frame {
			row[i] = strconv.FormatInt(int64(v), 10)
		}
		if err := w.Write(row); err != nil && writeErr == nil {
			writeErr = err
		}
		times = append(times, float64(uint32(frame[blackbox.TimeIndex])))
	}

	err = dec.ParseLogData(raw, dec.Pos(), r.End, onFrame)
	if err != nil {
		return err
	}
	if writeErr != nil {
		return writeErr
	}

	log.Info("exported session", "out", outPath,
		"frames", len(times), "corrupt", dec.Stats().TotalCorruptFrames)

	if summary {
		printSummary(dec, times)
	}
	return nil
}

// printSummary prints per-type frame counts and the loop-time jitter of the
// main frame stream.
func printSummary(dec *blackbox.Decoder, times []float64) {
	stats := dec.Stats()
	fmt.Printf("bytes: %d, corrupt frames: %d, intentionally absent iterations: %d\n",
		stats.TotalBytes, stats.TotalCorruptFrames, stats.IntentionallyAbsentIterations)

	for _, typ := range []byte{blackbox.FrameIntra, blackbox.FrameInter, blackbox.FrameGPS, blackbox.FrameGPSHome, blackbox.FrameSlow, blackbox.FrameEvent} {
		fs := stats.Frame(typ)
		if fs.ValidCount == 0 && fs.CorruptCount == 0 {
			continue
		}
		fmt.Printf("%c frames: %d valid, %d corrupt, %d bytes\n", typ, fs.ValidCount, fs.CorruptCount, fs.Bytes)
	}

	if len(times) < 2 {
		return
	}

	// Frame interval mean, spread and quantiles from successive main frame
	// times.
	deltas := make([]float64, len(times)-1)
	for i := range deltas {
		deltas[i] = times[i+1] - times[i]
	}
	sort.Float64s(deltas)

	mean, std := stat.MeanStdDev(deltas, nil)
	fmt.Printf("frame interval: mean %.1fµs, stddev %.1fµs, median %.1fµs, p99 %.1fµs\n",
		mean, std,
		stat.Quantile(0.5, stat.Empirical, deltas, nil),
		stat.Quantile(0.99, stat.Empirical, deltas, nil))
}
