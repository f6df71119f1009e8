// Package upload sends batches of files to the storage network's upload
// endpoint.
//
// Each attempt carries a fresh signature by the account owner over
//
//	Shadow Drive Signed Message:
//	Storage Account: <account>
//	Upload file with hash: <hex sha256 of the file name>
//	Nonce: <uuid>
//
// Transient failures (network errors, 5xx responses, 401) are retried with
// backoff up to Options.MaxAttempts. Rejections and oversized payloads are
// final. Results always come back in input order with one entry per file.
//
//	o := upload.New(storage.NewHTTPEndpoint(url, time.Minute), signer, upload.Options{})
//	results, err := o.Upload(ctx, account, files)
//	for _, r := range model.FailedResults(results) {
//		log.Printf("%s: %s: %v", r.Name, r.Kind, r.Err)
//	}
package upload
