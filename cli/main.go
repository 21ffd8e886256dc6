// Package provides the cli util objcp.
package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/gosuri/uilive"
	"github.com/sirupsen/logrus"

	"github.com/objcp/objcp/engine"
	"github.com/objcp/objcp/storage"
)

var cli argsParsed
var log = logrus.New()
var live *uilive.Writer

const (
	goThreadsPerCPU = 8
)

type runStatus int

const (
	runStatusUnknown runStatus = iota - 1
	runStatusOk
	runStatusFailed
	runStatusAborted
	runStatusConfError
)

// init program runtime: parse cli args and set logger
func init() {
	runtime.GOMAXPROCS(runtime.NumCPU() * goThreadsPerCPU)
	var err error
	cli, err = GetCliArgs()
	if err != nil {
		log.Fatalf("cli args parsing failed with error: %s", err)
	}
	if cli.ShowProgress {
		live = uilive.New()
		live.Start()
		log.SetOutput(live.Bypass())
		log.SetFormatter(&logrus.TextFormatter{ForceColors: true})
	}
	if cli.Debug {
		log.SetLevel(logrus.DebugLevel)
	}
	engine.Log = log
	storage.Log = log
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sysStopChan := make(chan os.Signal, 1)
	signal.Notify(sysStopChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		recSignal := <-sysStopChan
		log.Warnf("Receive signal: %s, terminating", recSignal.String())
		cancel()
	}()

	client, err := setupClient(&cli)
	if err != nil {
		log.Errorf("Failed to setup storage, error: %s", err)
		log.Exit(int(runStatusConfError))
	}

	if cli.ShowProgress {
		go printLiveStats(ctx, client)
	}

	err = runCommand(ctx, client, &cli)

	status := runStatusOk
	switch {
	case err == nil:
	case storage.IsErrContextCanceled(err):
		status = runStatusAborted
	case storage.IsErrPermission(err):
		log.Errorf("Permission denied: %s", err)
		status = runStatusFailed
	default:
		log.Errorf("%s", err)
		status = runStatusFailed
	}

	if cli.ShowProgress {
		live.Stop()
	}
	printFinalStats(client, status)
	log.Exit(int(status))
}
