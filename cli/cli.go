package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/mattn/go-isatty"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type backendType int

const (
	backendS3 backendType = iota
	backendAzure
	backendSwift
)

type cpCmd struct {
	Src           string `arg:"positional,required" help:"Source URL or local path"`
	Dst           string `arg:"positional,required" help:"Destination URL or local path"`
	Recursive     bool   `arg:"-r,--recursive" help:"Copy directories and prefixes recursively"`
	NoClobber     bool   `arg:"-n,--no-clobber" help:"Skip objects that already exist at the destination"`
	PreservePosix bool   `arg:"-P,--preserve-posix" help:"Carry POSIX attributes (uid, gid, mode, times) through object metadata"`
}

type lsCmd struct {
	URL       string `arg:"positional,required" help:"Storage URL to list"`
	Recursive bool   `arg:"-r,--recursive" help:"List all objects under the prefix"`
}

type rmCmd struct {
	URL       string `arg:"positional,required" help:"Storage URL to remove"`
	Recursive bool   `arg:"-r,--recursive" help:"Remove the whole subtree under the URL"`
}

type statCmd struct {
	URL string `arg:"positional,required" help:"Storage URL of a single object"`
}

type md5Cmd struct {
	URLs []string `arg:"positional,required" help:"Storage URLs to hash"`
}

type catCmd struct {
	URL string `arg:"positional,required" help:"Storage URL of a single object"`
}

type args struct {
	Cp   *cpCmd   `arg:"subcommand:cp" help:"Copy files and objects"`
	Ls   *lsCmd   `arg:"subcommand:ls" help:"List objects"`
	Rm   *rmCmd   `arg:"subcommand:rm" help:"Remove objects"`
	Stat *statCmd `arg:"subcommand:stat" help:"Print object metadata"`
	Md5  *md5Cmd  `arg:"subcommand:md5" help:"Print object MD5 hex digests"`
	Cat  *catCmd  `arg:"subcommand:cat" help:"Print object content"`
	// Backend config
	Backend       string `arg:"-b,--backend" help:"Storage backend. Possible values: s3, az, swift"`
	Key           string `arg:"--key" help:"Backend access key (account name for az, user for swift)"`
	Secret        string `arg:"--secret" help:"Backend secret key"`
	Region        string `arg:"--region" help:"AWS region"`
	Endpoint      string `arg:"--endpoint" help:"Custom backend endpoint"`
	Tenant        string `arg:"--tenant" help:"Swift tenant name"`
	Domain        string `arg:"--domain" help:"Swift domain name"`
	AuthURL       string `arg:"--auth-url" help:"Swift auth URL"`
	SkipSSLVerify bool   `arg:"--skip-ssl-verify" help:"Disable SSL certificate checks"`
	Retry         uint   `arg:"--retry" help:"Max number of retries for a storage request"`
	RetryInterval uint   `arg:"--retry-sleep" help:"Sleep interval (sec) between request retries on error"`
	KeysPerReq    int64  `arg:"--keys-per-req" help:"Max number of keys retrieved via one List request"`
	// FS config
	FSFilePerm     string `arg:"--fs-file-perm" help:"File permissions"`
	FSDirPerm      string `arg:"--fs-dir-perm" help:"Dir permissions"`
	FSAtomicWrite  bool   `arg:"--fs-atomic-write" help:"Download to temp file and rename to the final name"`
	FSDisableXattr bool   `arg:"--fs-disable-xattr" help:"Do not store object metadata in file xattrs"`
	// Misc
	Workers      uint `arg:"-w" help:"Workers count"`
	Debug        bool `arg:"-d" help:"Show debug logging"`
	ShowProgress bool `arg:"-p,--progress" help:"Show live progress"`
}

type argsParsed struct {
	args
	BackendType   backendType
	RetryInterval time.Duration
	FSFilePerm    os.FileMode
	FSDirPerm     os.FileMode
}

//Version return program version string on human format
func (args) Version() string {
	return fmt.Sprintf("Version: %v, commit: %v, built at: %v", version, commit, date)
}

//Description return program description string
func (args) Description() string {
	return "Copy tool for object storage with gsutil-style path semantics"
}

//GetCliArgs return cli args structure and error
func GetCliArgs() (cli argsParsed, err error) {
	rawCli := args{}
	rawCli.Backend = "s3"
	rawCli.Region = "us-east-1"
	rawCli.Retry = 0
	rawCli.RetryInterval = 0
	rawCli.KeysPerReq = 1000
	rawCli.FSFilePerm = "0644"
	rawCli.FSDirPerm = "0755"
	rawCli.FSAtomicWrite = true
	rawCli.Workers = 0

	p := arg.MustParse(&rawCli)
	cli.args = rawCli

	if p.Subcommand() == nil {
		p.Fail("missing subcommand, expected one of \"cp, ls, rm, stat, md5, cat\"")
	}

	switch cli.args.Backend {
	case "s3":
		cli.BackendType = backendS3
	case "az":
		cli.BackendType = backendAzure
	case "swift":
		cli.BackendType = backendSwift
	default:
		p.Fail("--backend must be one of \"s3, az, swift\"")
	}

	cli.RetryInterval = time.Duration(cli.args.RetryInterval) * time.Second

	if filePerm, err := strconv.ParseUint(cli.args.FSFilePerm, 8, 32); err != nil {
		p.Fail("Failed to parse arg --fs-file-perm")
	} else {
		cli.FSFilePerm = os.FileMode(filePerm)
	}

	if dirPerm, err := strconv.ParseUint(cli.args.FSDirPerm, 8, 32); err != nil {
		p.Fail("Failed to parse arg --fs-dir-perm")
	} else {
		cli.FSDirPerm = os.FileMode(dirPerm)
	}

	if cli.ShowProgress && !isatty.IsTerminal(os.Stdout.Fd()) {
		p.Fail("Progress (--progress) require tty")
	}

	return
}
