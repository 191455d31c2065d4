package main

import (
	"fmt"
	"strings"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/client"
	"github.com/spf13/pflag"
)

// Options contains the command-line configuration of the client.
type Options struct {
	Method string // HTTP method of the request.
	Target string // Path of the request, relative to the configured base URL.
	Body   string // JSON request body.

	LoginEmail string // Logs in with this email before sending the request.
	LoginPath  string

	AccessToken  string // Credentials saved in the store before anything else runs.
	RefreshToken string
	PrintToken   bool // Prints the current access token as JSON.
	KeepRunning  bool // Keeps running until interrupted, useful with the keep fresh job.

	method client.Method
}

func NewOptions() *Options {
	return &Options{
		Method:    string(client.MethodGet),
		LoginPath: "authentication/login",
	}
}

func (opts *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&opts.Method, "method", "X", opts.Method, "HTTP method of the request")
	fs.StringVarP(&opts.Target, "target", "t", opts.Target, "path of the request, relative to client.baseURL")
	fs.StringVarP(&opts.Body, "data", "d", opts.Body, "JSON body of the request")
	fs.StringVar(&opts.LoginEmail, "login", opts.LoginEmail, "log in with this email before sending the request")
	fs.StringVar(&opts.LoginPath, "login-path", opts.LoginPath, "path of the login endpoint")
	fs.StringVar(&opts.AccessToken, "access-token", opts.AccessToken, "access token saved in the credential store on start")
	fs.StringVar(&opts.RefreshToken, "refresh-token", opts.RefreshToken, "refresh token saved in the credential store on start")
	fs.BoolVar(&opts.PrintToken, "print-token", opts.PrintToken, "print the current access token")
	fs.BoolVar(&opts.KeepRunning, "keep-running", opts.KeepRunning, "keep running until interrupted")
}

// Complete validates the flags and fills in derived values.
func (opts *Options) Complete() error {
	method, err := client.ParseMethod(opts.Method)
	if err != nil {
		return err
	}
	opts.method = method
	opts.Target = strings.TrimSpace(opts.Target)
	if opts.Body != "" && (method == client.MethodGet || method == client.MethodHead) {
		return fmt.Errorf("a request body cannot be sent with %s", method)
	}
	if opts.Body != "" && opts.Target == "" {
		return fmt.Errorf("a request body requires a target")
	}
	if opts.LoginEmail != "" && opts.LoginPath == "" {
		return fmt.Errorf("the login path cannot be empty")
	}
	return nil
}
