package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/silvertree/stc/internal/silvertree"
)

// Flag names shared by the document commands.
const (
	flagDatabase   = "database"
	flagCollection = "collection"
	flagDocument   = "document"
	flagID         = "id"
	flagQuery      = "query"
)

// resourceFlags are the targeting flags a document command accepts. Only the
// fields for registered flags are populated. doc and filter hold the parsed
// --document and --query values.
type resourceFlags struct {
	database   string
	collection string
	document   string
	id         string
	query      string

	doc    silvertree.Document
	filter silvertree.Filter
}

// parse decodes the JSON flags that were registered. It runs before any
// network call so malformed input fails fast.
func (f *resourceFlags) parse(cmd *cobra.Command) error {
	if cmd.Flags().Lookup(flagDocument) != nil {
		obj, err := parseObject(flagDocument, f.document)
		if err != nil {
			return err
		}

		f.doc = obj
	}

	if cmd.Flags().Lookup(flagQuery) != nil {
		obj, err := parseObject(flagQuery, f.query)
		if err != nil {
			return err
		}

		f.filter = obj
	}

	return nil
}

// resourceAction runs one resource operation against an authenticated
// session.
type resourceAction func(ctx context.Context, c *silvertree.Client, f *resourceFlags) (any, error)

// newResourceCmd builds a document command. want lists the flags it takes;
// all of them are required.
func newResourceCmd(use, short string, action resourceAction, want ...string) *cobra.Command {
	f := &resourceFlags{}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if err := f.parse(cmd); err != nil {
				return err
			}

			return runAuthenticated(cmd.Context(), cc, func(ctx context.Context, s *APISession) (any, error) {
				return action(ctx, s.Client, f)
			})
		},
	}

	for _, name := range want {
		registerResourceFlag(cmd, f, name)
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func registerResourceFlag(cmd *cobra.Command, f *resourceFlags, name string) {
	fs := cmd.Flags()

	switch name {
	case flagDatabase:
		fs.StringVarP(&f.database, flagDatabase, "b", "", "database name")
	case flagCollection:
		fs.StringVarP(&f.collection, flagCollection, "c", "", "collection name")
	case flagDocument:
		fs.StringVarP(&f.document, flagDocument, "d", "", "document as a JSON object")
	case flagID:
		fs.StringVarP(&f.id, flagID, "i", "", "document id")
	case flagQuery:
		fs.StringVarP(&f.query, flagQuery, "q", "", "filter as a JSON object")
	}
}

func newDatabasesCmd() *cobra.Command {
	return newResourceCmd("dbs", "List databases",
		func(ctx context.Context, c *silvertree.Client, _ *resourceFlags) (any, error) {
			return c.Databases(ctx)
		})
}

func newCollectionsCmd() *cobra.Command {
	return newResourceCmd("colls", "List collections in a database",
		func(ctx context.Context, c *silvertree.Client, f *resourceFlags) (any, error) {
			return c.Collections(ctx, f.database)
		}, flagDatabase)
}

func newCountCmd() *cobra.Command {
	return newResourceCmd("count", "Count documents in a collection",
		func(ctx context.Context, c *silvertree.Client, f *resourceFlags) (any, error) {
			return c.Count(ctx, f.database, f.collection)
		}, flagDatabase, flagCollection)
}

func newDropCmd() *cobra.Command {
	return newResourceCmd("drop", "Drop a collection",
		func(ctx context.Context, c *silvertree.Client, f *resourceFlags) (any, error) {
			return c.DropCollection(ctx, f.database, f.collection)
		}, flagDatabase, flagCollection)
}

func newInsertCmd() *cobra.Command {
	return newResourceCmd("insert", "Insert a document",
		func(ctx context.Context, c *silvertree.Client, f *resourceFlags) (any, error) {
			return c.Insert(ctx, f.database, f.collection, f.doc)
		}, flagDatabase, flagCollection, flagDocument)
}

func newAllCmd() *cobra.Command {
	return newResourceCmd("all", "List every document in a collection",
		func(ctx context.Context, c *silvertree.Client, f *resourceFlags) (any, error) {
			return c.FindAll(ctx, f.database, f.collection)
		}, flagDatabase, flagCollection)
}

func newFirstCmd() *cobra.Command {
	return newResourceCmd("first", "Show the first document in a collection",
		func(ctx context.Context, c *silvertree.Client, f *resourceFlags) (any, error) {
			return c.FindFirst(ctx, f.database, f.collection)
		}, flagDatabase, flagCollection)
}

func newLastCmd() *cobra.Command {
	return newResourceCmd("last", "Show the last document in a collection",
		func(ctx context.Context, c *silvertree.Client, f *resourceFlags) (any, error) {
			return c.FindLast(ctx, f.database, f.collection)
		}, flagDatabase, flagCollection)
}

func newGetCmd() *cobra.Command {
	return newResourceCmd("get", "Fetch a document by id",
		func(ctx context.Context, c *silvertree.Client, f *resourceFlags) (any, error) {
			return c.FindByID(ctx, f.database, f.collection, f.id)
		}, flagDatabase, flagCollection, flagID)
}

func newFindCmd() *cobra.Command {
	return newResourceCmd("find", "Find documents matching a filter",
		func(ctx context.Context, c *silvertree.Client, f *resourceFlags) (any, error) {
			return c.FindBy(ctx, f.database, f.collection, f.filter)
		}, flagDatabase, flagCollection, flagQuery)
}

func newUpdateCmd() *cobra.Command {
	return newResourceCmd("update", "Update a document by id",
		func(ctx context.Context, c *silvertree.Client, f *resourceFlags) (any, error) {
			return c.Update(ctx, f.database, f.collection, f.id, f.doc)
		}, flagDatabase, flagCollection, flagID, flagDocument)
}

func newUpdateManyCmd() *cobra.Command {
	return newResourceCmd("update-many", "Update every document matching a filter",
		func(ctx context.Context, c *silvertree.Client, f *resourceFlags) (any, error) {
			return c.UpdateMany(ctx, f.database, f.collection, f.filter, f.doc)
		}, flagDatabase, flagCollection, flagQuery, flagDocument)
}

func newDeleteCmd() *cobra.Command {
	return newResourceCmd("delete", "Delete a document by id",
		func(ctx context.Context, c *silvertree.Client, f *resourceFlags) (any, error) {
			return c.Delete(ctx, f.database, f.collection, f.id)
		}, flagDatabase, flagCollection, flagID)
}

// parseObject decodes a flag value that must be a single JSON object.
// Numbers keep their literal form.
func parseObject(name, raw string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, fmt.Errorf("%s must be a valid JSON object", name)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s must be a valid JSON object", name)
	}

	return obj, nil
}
