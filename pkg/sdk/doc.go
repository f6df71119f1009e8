// Quick start:
//
//	cfg := &config.Config{
//		RPCAddr:    "https://ledger.example/rpc",
//		PrivateKey: os.Getenv("SHDW_PRIVATE_KEY"),
//		Network:    config.Devnet,
//	}
//	drive, err := sdk.NewSDK(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer drive.Close()
//
//	acct, err := drive.Create(ctx, "photos", 1<<20)
//	if err != nil {
//		log.Fatal(err)
//	}
//	results, err := drive.Upload(ctx, acct.Address(), []model.ShadowFile{
//		model.FileFromBytes("hello.txt", []byte("hello")),
//	})
//
// Mutations (Create, Resize, MarkImmutable) are serialized per account and
// return the refreshed account once the transaction is confirmed. A
// submission that never settles returns a *blockchain.SubmitError in the
// timed_out state carrying the transaction hash; the cached snapshot is left
// untouched in that case. Local refusals wrap ErrValidationRejected and send
// nothing.
//
// Upload returns one model.UploadResult per input file, in input order. A
// batch is rejected as a whole when names repeat or the total size exceeds
// the account's free bytes.
//
// Without a private key the SDK is read-only: Account, Cached, ReadFile,
// ListObjects and Healthcheck work, mutations return ErrNoSigner.
package sdk
