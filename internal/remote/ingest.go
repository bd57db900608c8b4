package remote

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

const (
	jobsFileField = "jobsFile"
	jobsFileName  = "jobs.csv"
)

// UploadCSV forwards a CSV table to the ingestion endpoint as the jobsFile
// multipart field.
func (c *Client) UploadCSV(ctx context.Context, csv []byte) Result {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+jobsFileField+`"; filename="`+jobsFileName+`"`)
	h.Set("Content-Type", "text/csv")
	part, err := mw.CreatePart(h)
	if err == nil {
		_, err = part.Write(csv)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		res := Result{Outcome: PermanentFailure, Err: err}
		c.logResult(res, "CSV upload", jobsFileName)
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadCSVPath, &buf)
	if err != nil {
		res := Result{Outcome: PermanentFailure, Err: err}
		c.logResult(res, "CSV upload", jobsFileName)
		return res
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	res := c.do(req)
	c.logResult(res, "CSV upload", jobsFileName)
	return res
}
