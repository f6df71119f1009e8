// Package model defines the values exchanged between the SDK and its callers.
//
// # Files
//
// ShadowFile names one file of an upload batch and points at its bytes,
// either on disk or in memory:
//
//	files := []model.ShadowFile{
//		model.FileFromPath("./report.pdf"),
//		model.FileFromBytes("hello.txt", []byte("hello")),
//	}
//
// Names must be unique within the target storage account. Payloads larger
// than FileSizeLimit (1 GiB) are refused per file.
//
// # Results
//
// Uploads return one UploadResult per input file, in input order. Kind
// classifies the outcome:
//
//	Success            stored; Location holds the content locator
//	PayloadTooLarge    refused for size, final
//	EndpointRejected   refused by the endpoint, final
//	NetworkError       transport or 5xx failure, retried
//	SignatureRequired  authorization refused, retried with a fresh signature
//	SigningUnsupported the signer cannot sign the authorization message
//	Cancelled          the batch context ended before the file finished
//	InvalidFile        the payload could not be read locally
//
// # Sizes
//
// ParseSize and FormatSize convert between byte counts and strings such as
// "1.5MB" (decimal units) or "10 KiB" (binary units).
package model
