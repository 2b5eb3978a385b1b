// httpdo performs a HTTP GET restricting the TLS protocol versions
// and prints the status and the negotiated protocol.
//
// Usage:
//
//	httpdo -url url [-protocols list] [-retries n]
//
//	httpdo -help
//
// Examples:
//
//	./httpdo -url https://example.com/ -protocols TLSv1.3 -retries 3
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/m-lab/go/rtx"
	"github.com/ooni/sslprotocols/cmd/common"
	"github.com/ooni/sslprotocols/handlers/logger"
	"github.com/ooni/sslprotocols/httpx"
	"github.com/ooni/sslprotocols/internal/retry"
	"github.com/ooni/sslprotocols/model"
)

var (
	flagRetries = flag.Int("retries", 1, "Number of attempts on transient failures")
	flagTimeout = flag.Duration("timeout", 60*time.Second, "Overall timeout")
	flagURL     = flag.String("url", "https://example.com/", "URL to use")
)

// Result is the result of the request.
type Result struct {
	Attempts   int
	BodyLength int64           `json:",omitempty"`
	Failure    string          `json:",omitempty"`
	Kind       model.ErrorKind `json:",omitempty"`
	Protocol   string          `json:",omitempty"`
	StatusCode int             `json:",omitempty"`
	URL        string
}

func main() {
	log.SetHandler(cli.Default)
	log.SetLevel(log.DebugLevel)
	flag.Parse()
	rtx.Must(mainfunc(), "httpdo failed")
}

func mainfunc() error {
	if *common.FlagHelp {
		flag.CommandLine.SetOutput(os.Stdout)
		fmt.Printf("Usage: httpdo [flags]\n")
		flag.PrintDefaults()
		fmt.Printf("\nExamples:\n")
		fmt.Printf("%s\n", "  ./httpdo -url https://example.com/ -protocols TLSv1.3 -retries 3")
		return nil
	}
	client := httpx.NewClient(logger.NewHandler(log.Log))
	defer client.Transport.CloseIdleConnections()
	if err := common.Configure(client.SslOptions(), client); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), *flagTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", *flagURL, nil)
	if err != nil {
		return err
	}
	result := Result{URL: *flagURL}
	err = retry.Retry(ctx, *flagRetries, func() error {
		result.Attempts++
		return fetch(client, req, &result)
	}, retry.Transient)
	if err != nil {
		result.Failure = err.Error()
		result.Kind = model.KindOf(err)
	}
	prettyprint(result)
	return nil
}

func fetch(client *httpx.Client, req *http.Request, result *Result) error {
	resp, err := client.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	result.BodyLength, err = io.Copy(io.Discard, resp.Body)
	if err != nil {
		return err
	}
	result.StatusCode = resp.StatusCode
	if version, ok := httpx.NegotiatedProtocol(resp); ok {
		result.Protocol = version.String()
	}
	return nil
}

func prettyprint(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	rtx.Must(err, "json.Marshal failed")
	fmt.Fprintf(common.Stdout, "%s\n", string(data))
}
