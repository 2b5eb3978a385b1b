// tlsconnect connects to a TLS endpoint restricting the enabled
// protocol versions and prints the result.
//
// Usage:
//
//	tlsconnect -address address [-protocols list] [-sni sni]
//
//	tlsconnect -help
//
// Examples:
//
//	./tlsconnect -address example.com:443 -protocols TLSv1.2
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/m-lab/go/rtx"
	"github.com/ooni/sslprotocols"
	"github.com/ooni/sslprotocols/cmd/common"
	"github.com/ooni/sslprotocols/handlers/logger"
	"github.com/ooni/sslprotocols/model"
)

var (
	flagAddress = flag.String("address", "example.com:443", "Address to connect to")
	flagTimeout = flag.Duration("timeout", 30*time.Second, "Overall timeout")
)

// Result is the result of connecting.
type Result struct {
	Address  string
	Enabled  string
	Failure  string          `json:",omitempty"`
	Kind     model.ErrorKind `json:",omitempty"`
	Protocol string          `json:",omitempty"`
}

func main() {
	log.SetHandler(cli.Default)
	log.SetLevel(log.DebugLevel)
	flag.Parse()
	rtx.Must(mainfunc(), "tlsconnect failed")
}

func mainfunc() error {
	if *common.FlagHelp {
		flag.CommandLine.SetOutput(os.Stdout)
		fmt.Printf("Usage: tlsconnect [flags]\n")
		flag.PrintDefaults()
		fmt.Printf("\nExamples:\n")
		fmt.Printf("%s\n", "  ./tlsconnect -address example.com:443 -protocols TLSv1.2")
		return nil
	}
	dialer := sslprotocols.NewDialer(logger.NewHandler(log.Log))
	if err := common.Configure(dialer.SslOptions(), dialer); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), *flagTimeout)
	defer cancel()
	result := Result{
		Address: *flagAddress,
		Enabled: dialer.SslOptions().EnabledProtocols().String(),
	}
	conn, err := dialer.DialTLSContext(ctx, "tcp", *flagAddress)
	if err != nil {
		result.Failure = err.Error()
		result.Kind = model.KindOf(err)
	} else {
		version, _ := sslprotocols.NegotiatedProtocol(conn)
		result.Protocol = version.String()
		conn.Close()
	}
	prettyprint(result)
	return nil
}

func prettyprint(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	rtx.Must(err, "json.Marshal failed")
	fmt.Fprintf(common.Stdout, "%s\n", string(data))
}
