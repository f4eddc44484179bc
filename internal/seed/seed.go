// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

// Package seed loads account seed files and registers their accounts.
package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/pkg/errutil"
)

// SchemaID is the $id of the generated seed file schema.
const SchemaID = "https://passgate.dev/schemas/seed.schema.json"

// File is the top level of a seed file.
type File struct {
	Accounts []Account `json:"accounts" yaml:"accounts" jsonschema:"description=Accounts to register"`
}

// Account is one account to register.
type Account struct {
	Name     string `json:"name" yaml:"name" jsonschema:"minLength=2,maxLength=100"`
	Email    string `json:"email" yaml:"email" jsonschema:"format=email,maxLength=254"`
	Password string `json:"password" yaml:"password" jsonschema:"minLength=6,maxLength=128"`
	// Active defaults to true.
	Active *bool `json:"active,omitempty" yaml:"active,omitempty"`
}

// Registrar is the part of auth.Service used for seeding.
type Registrar interface {
	Register(ctx context.Context, name, email, password string) (ulid.ULID, error)
	SetAccountActive(ctx context.Context, email string, active bool) error
}

// Result counts what Apply did.
type Result struct {
	Created int
	Skipped int
}

var compiledSchema = sync.OnceValues(compileSchema)

// GenerateSchema reflects the JSON Schema of File.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true}
	schema := r.Reflect(&File{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Passgate Seed File"
	schema.Description = "Accounts created by passgate seed"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("SEED_SCHEMA_FAILED").Wrap(err)
	}
	return data, nil
}

func compileSchema() (*jschema.Schema, error) {
	raw, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, oops.Code("SEED_SCHEMA_FAILED").With("operation", "parse schema").Wrap(err)
	}

	c := jschema.NewCompiler()
	if err := c.AddResource(SchemaID, doc); err != nil {
		return nil, oops.Code("SEED_SCHEMA_FAILED").With("operation", "add schema").Wrap(err)
	}
	sch, err := c.Compile(SchemaID)
	if err != nil {
		return nil, oops.Code("SEED_SCHEMA_FAILED").With("operation", "compile schema").Wrap(err)
	}
	return sch, nil
}

// Parse validates data against the seed schema and decodes it.
func Parse(data []byte) (*File, error) {
	if len(data) == 0 {
		return nil, oops.Code("SEED_INVALID").Errorf("seed file is empty")
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, oops.Code("SEED_INVALID").With("operation", "parse yaml").Wrap(err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(doc); err != nil {
		return nil, oops.Code("SEED_INVALID").With("operation", "validate").Wrap(err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, oops.Code("SEED_INVALID").With("operation", "decode").Wrap(err)
	}
	return &f, nil
}

// Apply registers every account in f. Accounts whose email is already taken
// are skipped, so seeding twice is harmless.
func Apply(ctx context.Context, reg Registrar, f *File, logger *slog.Logger) (Result, error) {
	var res Result
	for _, a := range f.Accounts {
		_, err := reg.Register(ctx, a.Name, a.Email, a.Password)
		switch {
		case err == nil:
			res.Created++
			logger.InfoContext(ctx, "seed account created", "email", a.Email)
		case auth.KindOf(err) == auth.KindConflict:
			res.Skipped++
			logger.InfoContext(ctx, "seed account exists, skipping", "email", a.Email)
			continue
		default:
			errutil.LogError(logger, "seed account failed", err)
			return res, oops.Code("SEED_FAILED").With("email", a.Email).Wrap(err)
		}

		if a.Active != nil && !*a.Active {
			if err := reg.SetAccountActive(ctx, a.Email, false); err != nil {
				return res, oops.Code("SEED_FAILED").With("email", a.Email).Wrap(err)
			}
		}
	}
	return res, nil
}
