// Package storage talks to the off-ledger storage network: the HTTP upload
// service that accepts signed file uploads, and an optional IPFS (Kubo) node
// used as an alternative upload target and for reading content back.
//
// # Endpoints
//
// Both HTTPEndpoint and IPFSEndpoint implement Endpoint. The HTTP endpoint
// posts one multipart/form-data request per file to {BaseURL}/upload with
// the fields:
//
//	file             the payload, with its detected content type
//	message          the exact text that was signed
//	signature        0x-prefixed hex signature over message
//	signer           address that produced the signature
//	storage_account  target storage account
//	fileNames        file name
//	cid              locally computed CIDv1 of the payload
//
// Response statuses map onto sentinels:
//
//	2xx  success, unless the body carries upload_errors or no location
//	401  ErrSignatureRequired (the caller may re-sign and retry)
//	413  ErrPayloadTooLarge
//	4xx  ErrEndpointRejected
//	5xx  ErrNetwork, as do transport failures
//
// Classify turns any endpoint error into a model.ErrorKind.
//
// # Content ids
//
// ComputeCID returns the raw-codec CIDv1 of a payload. Reader.ReadFile and
// the IPFS fetcher verify downloads against raw-codec ids; DAG ids are
// accepted as returned.
//
// # Reading
//
//	r := storage.NewReader(ipfsAPI, "https://gateway.example/ipfs/", 30*time.Second)
//	data, err := r.ReadFile(ctx, "ipfs://bafk...")
//
// ipfs:// locators go through Kubo when a client is configured. http(s)
// locators are fetched as-is, and bare ids are resolved against GatewayURL.
package storage
