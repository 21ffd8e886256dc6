package main

import (
	"context"
	"fmt"
	"time"

	"github.com/objcp/objcp/engine"
)

func printLiveStats(ctx context.Context, client *engine.Client) {
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		default:
			p := client.Progress()
			_, _ = fmt.Fprintf(live, "Copied: %d; Skipped: %d; Failed: %d; Submitted: %d\n",
				p.Copied.Load(), p.Skipped.Load(), p.Failed.Load(), p.Submitted.Load())
			_, _ = fmt.Fprintf(live, "Duration: %s\n", time.Since(start).String())
			time.Sleep(time.Second)
		}
	}
}

func printFinalStats(client *engine.Client, status runStatus) {
	p := client.Progress()
	if p.Submitted.Load() > 0 {
		log.Infof("Copied: %d; Skipped: %d; Failed: %d", p.Copied.Load(), p.Skipped.Load(), p.Failed.Load())
	}

	switch status {
	case runStatusOk:
	case runStatusFailed:
		log.Error("Failed")
	case runStatusAborted:
		log.Warnf("Aborted")
	case runStatusConfError:
		log.Errorf("Configuration error")
	}
}

func printStat(url string, stat *engine.Stat) {
	fmt.Printf("%s:\n", url)
	fmt.Printf("    Content-Length: %d\n", stat.ContentLength)
	if stat.ContentType != "" {
		fmt.Printf("    Content-Type:   %s\n", stat.ContentType)
	}
	if stat.StorageClass != "" {
		fmt.Printf("    Storage-Class:  %s\n", stat.StorageClass)
	}
	if !stat.UpdateTime.IsZero() {
		fmt.Printf("    Update-Time:    %s\n", stat.UpdateTime.Format(time.RFC3339))
	}
	if stat.MD5 != nil {
		fmt.Printf("    MD5:            %x\n", stat.MD5)
	}
	if stat.CRC32C != nil {
		fmt.Printf("    CRC32C:         %x\n", stat.CRC32C)
	}
	if stat.PosixUID != "" {
		fmt.Printf("    Posix-UID:      %s\n", stat.PosixUID)
	}
	if stat.PosixGID != "" {
		fmt.Printf("    Posix-GID:      %s\n", stat.PosixGID)
	}
	if stat.PosixMode != "" {
		fmt.Printf("    Posix-Mode:     %s\n", stat.PosixMode)
	}
	if !stat.FileMtime.IsZero() {
		fmt.Printf("    File-Mtime:     %s\n", stat.FileMtime.Format(time.RFC3339))
	}
	if !stat.FileAtime.IsZero() {
		fmt.Printf("    File-Atime:     %s\n", stat.FileAtime.Format(time.RFC3339))
	}
}
