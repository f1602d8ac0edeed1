package csvbridge

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gocarina/gocsv"
	"github.com/mitchellh/mapstructure"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/talkincode/toughcrm/internal/domain"
)

// clientRow mirrors the client fields; CSV headers must use these names
// exactly. The limits match the POST /clientes payload.
type clientRow struct {
	ID        int64  `mapstructure:"id"`
	Documento string `mapstructure:"documento" validate:"max=64"`
	FirstName string `mapstructure:"first_name" validate:"max=100"`
	LastName  string `mapstructure:"last_name" validate:"max=100"`
	Email     string `mapstructure:"email" validate:"max=254"`
	Password  string `mapstructure:"password" validate:"maxbytes=72"`
}

// summaryRow accepts files produced by ExportClientSummary
type summaryRow struct {
	ID        int64  `mapstructure:"ID"`
	Documento string `mapstructure:"Documento" validate:"max=64"`
	FullName  string `mapstructure:"Nombre Completo" validate:"max=201"`
}

// ImportResult counts what an import did
type ImportResult struct {
	Imported int `json:"imported"`
	Replaced int `json:"replaced"`
}

// pendingClient is a decoded row. Summary rows carry no email or password,
// so they are merged into an existing client instead of replacing it.
type pendingClient struct {
	client   domain.Client
	password string
	summary  bool
}

// mergeSummary keeps the credentials of the stored client
func mergeSummary(existing, incoming domain.Client) domain.Client {
	incoming.Email = existing.Email
	incoming.PasswordHash = existing.PasswordHash
	return incoming
}

// ImportClients parses a CSV file and upserts every row into the client
// registry. All rows are decoded before anything is written, so a bad row
// leaves the registry untouched.
func (b *Bridge) ImportClients(ctx context.Context, data []byte) (ImportResult, error) {
	var result ImportResult

	text, err := decodeUTF8(data)
	if err != nil {
		return result, err
	}

	rows, err := gocsv.CSVToMaps(bytes.NewReader(text))
	if err != nil {
		return result, errors.Wrap(domain.ErrValidation, "malformed csv: "+err.Error())
	}
	if len(rows) == 0 {
		return result, nil
	}

	pending := make([]pendingClient, 0, len(rows))
	for i, m := range rows {
		p, err := b.decodeRow(m)
		if err != nil {
			// data rows start on line 2
			return result, errors.Wrapf(domain.ErrValidation, "row %d: %s", i+2, err.Error())
		}
		pending = append(pending, p)
	}

	if err := b.hashPasswords(ctx, pending); err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	for _, p := range pending {
		var replaced bool
		if p.summary {
			replaced = b.clients.Merge(p.client, mergeSummary)
		} else {
			replaced = b.clients.Upsert(p.client)
		}
		if replaced {
			result.Replaced++
		}
		result.Imported++
	}
	return result, nil
}

// decodeUTF8 rejects invalid UTF-8 and strips a leading byte order mark
func decodeUTF8(data []byte) ([]byte, error) {
	if !utf8.Valid(data) {
		return nil, errors.Wrap(domain.ErrValidation, "file is not valid UTF-8")
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return nil, errors.Wrap(domain.ErrValidation, err.Error())
	}
	return out, nil
}

func (b *Bridge) decodeRow(m map[string]string) (pendingClient, error) {
	switch {
	case hasKey(m, "id"):
		var row clientRow
		if err := weakDecode(m, "id", &row); err != nil {
			return pendingClient{}, err
		}
		if err := b.validate.Struct(row); err != nil {
			return pendingClient{}, err
		}
		return pendingClient{
			client: domain.Client{
				ID:        row.ID,
				Documento: row.Documento,
				FirstName: row.FirstName,
				LastName:  row.LastName,
				Email:     row.Email,
			},
			password: row.Password,
		}, nil
	case hasKey(m, "ID") && hasKey(m, "Nombre Completo"):
		var row summaryRow
		if err := weakDecode(m, "ID", &row); err != nil {
			return pendingClient{}, err
		}
		if err := b.validate.Struct(row); err != nil {
			return pendingClient{}, err
		}
		first, last := splitFullName(row.FullName)
		return pendingClient{
			client: domain.Client{
				ID:        row.ID,
				Documento: row.Documento,
				FirstName: first,
				LastName:  last,
			},
			summary: true,
		}, nil
	default:
		return pendingClient{}, errors.New("unrecognized header, expected id,documento,first_name,last_name,email,password")
	}
}

// weakDecode fills out from m, requiring every tagged field to be present
// and the id column to hold an integer.
func weakDecode(m map[string]string, idKey string, out interface{}) error {
	idValue := strings.TrimSpace(m[idKey])
	if idValue == "" {
		return errors.Errorf("field %s is required", idKey)
	}
	id, err := strconv.ParseInt(idValue, 10, 64)
	if err != nil {
		return errors.Errorf("field %s must be an integer, got %q", idKey, idValue)
	}
	input := make(map[string]interface{}, len(m))
	for k, v := range m {
		input[k] = v
	}
	input[idKey] = id

	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Metadata:         &md,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return err
	}
	if len(md.Unset) > 0 {
		return errors.Errorf("missing fields: %s", strings.Join(md.Unset, ", "))
	}
	return nil
}

func hasKey(m map[string]string, key string) bool {
	_, ok := m[key]
	return ok
}

// splitFullName splits at the first space; "Ana Maria Lee" becomes
// ("Ana", "Maria Lee").
func splitFullName(full string) (string, string) {
	full = strings.TrimSpace(full)
	first, last, _ := strings.Cut(full, " ")
	return first, strings.TrimSpace(last)
}

func (b *Bridge) hashPasswords(ctx context.Context, pending []pendingClient) error {
	pool, err := ants.NewPool(b.workers)
	if err != nil {
		return errors.Wrap(err, "create hash pool")
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i := range pending {
		if pending[i].password == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		p := &pending[i]
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			hash, err := b.hasher.Hash(p.password)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			p.client.PasswordHash = hash
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = errors.Wrap(err, "submit hash task")
			}
			mu.Unlock()
			break
		}
	}
	wg.Wait()
	return firstErr
}
