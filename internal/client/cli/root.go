// Package cli implements deckctl, an operator tool for GemDeck file tokens
// and storage keys.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"

	"github.com/alecthomas/kong"
	"github.com/dmitrijs2005/gemdeck/internal/cryptox"
	"github.com/dmitrijs2005/gemdeck/internal/htmlscan"
	"github.com/dmitrijs2005/gemdeck/internal/keyspace"
	"github.com/dmitrijs2005/gemdeck/internal/shared"
)

// Version is set by `go build -ldflags`.
var Version = "dev"

// exit is a test seam for os.Exit, used by kong on --help and usage errors.
var exit = os.Exit

// session carries what every command needs: output streams and a lazily
// resolved key source.
type session struct {
	out    io.Writer
	errOut io.Writer
	secret string
}

// keySource returns the --secret value, or prompts for it.
func (s *session) keySource() (cryptox.KeySource, error) {
	if s.secret != "" {
		return cryptox.DeriveKey(s.secret)
	}
	pw, err := GetSecret(s.errOut)
	if err != nil {
		return nil, err
	}
	defer shared.WipeByteArray(pw)
	return cryptox.DeriveKey(string(pw))
}

type encryptCmd struct {
	Key string `arg:"" help:"Storage key, e.g. docs/<owner>/<name>.html."`
}

func (c *encryptCmd) Run(s *session) error {
	src, err := s.keySource()
	if err != nil {
		return err
	}
	token, err := cryptox.EncryptPath(c.Key, src)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.out, token)
	return err
}

type decryptCmd struct {
	Token string `arg:"" help:"Hex file token as found in /api/file/<token>."`
}

func (c *decryptCmd) Run(s *session) error {
	src, err := s.keySource()
	if err != nil {
		return err
	}
	key, ok := cryptox.DecryptPath(c.Token, src)
	if !ok {
		return fmt.Errorf("token does not decrypt with this secret")
	}
	_, err = fmt.Fprintln(s.out, key)
	return err
}

type keyCmd struct {
	Owner string `arg:"" help:"Owner identifier (email)."`
	Name  string `arg:"" help:"Document name; .html is appended when missing."`
}

func (c *keyCmd) Run(s *session) error {
	key, err := keyspace.DocumentKey(c.Owner, c.Name)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.out, key)
	return err
}

type scanCmd struct {
	File  string `arg:"" type:"existingfile" help:"HTML file to inspect."`
	Owner string `short:"o" help:"Also resolve embedded file tokens owned by this identifier."`
}

func (c *scanCmd) Run(s *session) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}

	names, err := htmlscan.LocalImageFilenames(string(data))
	if err != nil {
		return err
	}
	for _, n := range sortedKeys(names) {
		fmt.Fprintln(s.out, "local", n)
	}

	if c.Owner == "" {
		return nil
	}
	src, err := s.keySource()
	if err != nil {
		return err
	}
	keys, err := htmlscan.ReferencedStorageKeys(string(data), c.Owner, src)
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Fprintln(s.out, "stored", k)
	}
	return nil
}

type versionCmd struct{}

func (versionCmd) Run(s *session) error {
	_, err := fmt.Fprintf(s.out, "deckctl %s\n%s %s/%s\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return err
}

// CLI is the kong command tree.
type CLI struct {
	Secret string `short:"s" env:"GEMDECK_ENCRYPTION_SECRET" help:"Encryption secret. Prompted for when empty."`

	Encrypt encryptCmd `cmd:"" help:"Encrypt a storage key into a file token."`
	Decrypt decryptCmd `cmd:"" help:"Decrypt a file token into its storage key."`
	Key     keyCmd     `cmd:"" help:"Print the document storage key for an owner and name."`
	Scan    scanCmd    `cmd:"" help:"List image references in an HTML document."`
	Version versionCmd `cmd:"" help:"Show the program version."`
}

// Run parses args and executes the selected command.
func Run(args []string, out, errOut io.Writer) error {
	var c CLI
	parser, err := kong.New(&c,
		kong.Name("deckctl"),
		kong.Description("Operator tool for GemDeck file tokens and storage keys."),
		kong.UsageOnError(),
		kong.Writers(out, errOut),
		kong.Exit(exit))
	if err != nil {
		return err
	}

	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	return ctx.Run(&session{out: out, errOut: errOut, secret: c.Secret})
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
