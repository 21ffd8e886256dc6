package main

import (
	"context"
	"fmt"
	"os"

	"github.com/objcp/objcp/engine"
)

func runCommand(ctx context.Context, client *engine.Client, cli *argsParsed) error {
	switch {
	case cli.Cp != nil:
		return runCp(ctx, client, cli)
	case cli.Ls != nil:
		return runLs(ctx, client, cli)
	case cli.Rm != nil:
		return runRm(ctx, client, cli)
	case cli.Stat != nil:
		return runStat(ctx, client, cli)
	case cli.Md5 != nil:
		return runMd5(ctx, client, cli)
	case cli.Cat != nil:
		return runCat(ctx, client, cli)
	}
	return fmt.Errorf("no command given")
}

func runCp(ctx context.Context, client *engine.Client, cli *argsParsed) error {
	opts := engine.Options{
		Recursive:        cli.Cp.Recursive,
		NoClobber:        cli.Cp.NoClobber,
		PreserveMetadata: cli.Cp.PreservePosix,
		Workers:          int(cli.Workers),
	}
	return client.Cp(ctx, cli.Cp.Src, cli.Cp.Dst, opts)
}

func runLs(ctx context.Context, client *engine.Client, cli *argsParsed) error {
	urls, err := client.Ls(ctx, cli.Ls.URL, cli.Ls.Recursive)
	if err != nil {
		return err
	}
	for _, u := range urls {
		fmt.Println(u)
	}
	return nil
}

func runRm(ctx context.Context, client *engine.Client, cli *argsParsed) error {
	opts := engine.Options{
		Recursive: cli.Rm.Recursive,
		Workers:   int(cli.Workers),
	}
	return client.Rm(ctx, cli.Rm.URL, opts)
}

func runStat(ctx context.Context, client *engine.Client, cli *argsParsed) error {
	stat, err := client.Stat(ctx, cli.Stat.URL)
	if err != nil {
		return err
	}
	printStat(cli.Stat.URL, stat)
	return nil
}

func runMd5(ctx context.Context, client *engine.Client, cli *argsParsed) error {
	digests, err := client.MD5Hexdigests(ctx, cli.Md5.URLs, int(cli.Workers))
	if err != nil {
		return err
	}
	for i, d := range digests {
		if d == "" {
			d = "-"
		}
		fmt.Printf("%s  %s\n", d, cli.Md5.URLs[i])
	}
	return nil
}

func runCat(ctx context.Context, client *engine.Client, cli *argsParsed) error {
	data, err := client.ReadBytes(ctx, cli.Cat.URL)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
