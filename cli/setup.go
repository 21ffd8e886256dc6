package main

import (
	"os"

	"github.com/objcp/objcp/engine"
	"github.com/objcp/objcp/storage"
	"github.com/objcp/objcp/storage/az"
	"github.com/objcp/objcp/storage/fs"
	"github.com/objcp/objcp/storage/s3"
	"github.com/objcp/objcp/storage/swift"
)

func setupClient(cli *argsParsed) (*engine.Client, error) {
	var store storage.ObjectStore
	var err error

	switch cli.BackendType {
	case backendS3:
		store = s3.NewStore(cli.Key, cli.Secret, cli.Region, cli.Endpoint,
			cli.KeysPerReq, cli.Retry, cli.RetryInterval,
		)
	case backendAzure:
		store, err = az.NewStore(cli.Key, cli.Secret, cli.Endpoint, int32(cli.KeysPerReq))
	case backendSwift:
		store, err = swift.NewStore(cli.Key, cli.Secret, cli.Tenant, cli.Domain, cli.AuthURL, cli.SkipSSLVerify)
	}
	if err != nil {
		return nil, err
	}

	local := fs.NewLocal(cli.FSFilePerm, cli.FSDirPerm, os.Getpagesize()*256*32,
		!cli.FSDisableXattr, cli.FSAtomicWrite,
	)

	return engine.NewClient(store, local), nil
}
