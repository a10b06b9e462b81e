// Package httpclient provides a typed Go client for the chunked upload
// REST API. The client implements the upload session protocol, so it can
// drive an uploader directly.
//
// Create a client with:
//
//	client, err := httpclient.New("http://localhost:8080/api/chunkup")
//	if err != nil {
//	   panic(err)
//	}
//
// Then upload a file:
//
//	u, err := uploader.New(client)
//	obj, err := u.UploadFile(ctx, "talk.mp4", func(percent int) {
//	   fmt.Println(percent)
//	})
package httpclient
