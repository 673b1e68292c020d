package silvertree

import (
	"context"
	"log/slog"
	"net/http"
)

// Operation names reported in ErrOperation errors.
const (
	OpGetDatabases   = "get_databases"
	OpGetCollections = "get_collections"
	OpCount          = "count"
	OpInsert         = "insert"
	OpFindByID       = "find_by_id"
	OpFindBy         = "find_by"
	OpFindAll        = "find_all"
	OpFindFirst      = "find_first"
	OpFindLast       = "find_last"
	OpDropCollection = "drop_collection"
	OpDelete         = "delete"
	OpUpdate         = "update"
	OpUpdateMany     = "update_many"
)

// Databases lists the databases visible to the current credential.
func (c *Client) Databases(ctx context.Context) (any, error) {
	c.logger.Info("listing databases")

	return c.call(ctx, OpGetDatabases, http.MethodGet, "/", nil, nil)
}

// Collections lists the collections in database.
func (c *Client) Collections(ctx context.Context, database string) (any, error) {
	c.logger.Info("listing collections", slog.String("database", database))

	path, err := resourcePath(OpGetCollections, databaseSeg(database))
	if err != nil {
		return nil, err
	}

	return c.call(ctx, OpGetCollections, http.MethodGet, path, nil, nil)
}

// Count returns the number of documents in a collection.
func (c *Client) Count(ctx context.Context, database, collection string) (any, error) {
	return c.collectionCall(ctx, OpCount, http.MethodGet, database, collection, "count")
}

// Insert stores a new document.
func (c *Client) Insert(ctx context.Context, database, collection string, doc Document) (any, error) {
	if doc == nil {
		return nil, preconditionError(OpInsert, "document is required")
	}

	path, err := resourcePath(OpInsert, databaseSeg(database), collectionSeg(collection))
	if err != nil {
		return nil, err
	}

	c.logger.Info("inserting document",
		slog.String("database", database),
		slog.String("collection", collection),
	)

	return c.call(ctx, OpInsert, http.MethodPost, path, nil, doc)
}

// FindByID fetches one document by id.
func (c *Client) FindByID(ctx context.Context, database, collection, docID string) (any, error) {
	return c.documentCall(ctx, OpFindByID, http.MethodGet, database, collection, docID, nil)
}

// FindBy returns the documents matching filter. The filter travels as query
// parameters and is not interpreted by the client.
func (c *Client) FindBy(ctx context.Context, database, collection string, filter Filter) (any, error) {
	path, err := resourcePath(OpFindBy, databaseSeg(database), collectionSeg(collection), literalSeg("findBy"))
	if err != nil {
		return nil, err
	}

	query, err := encodeFilter(OpFindBy, filter)
	if err != nil {
		return nil, err
	}

	c.logger.Info("finding documents",
		slog.String("database", database),
		slog.String("collection", collection),
		slog.Int("filter_keys", len(filter)),
	)

	return c.call(ctx, OpFindBy, http.MethodGet, path, query, nil)
}

// FindAll returns every document in a collection.
func (c *Client) FindAll(ctx context.Context, database, collection string) (any, error) {
	return c.collectionCall(ctx, OpFindAll, http.MethodGet, database, collection, "")
}

// FindFirst returns the first document in a collection.
func (c *Client) FindFirst(ctx context.Context, database, collection string) (any, error) {
	return c.collectionCall(ctx, OpFindFirst, http.MethodGet, database, collection, "first")
}

// FindLast returns the last document in a collection.
func (c *Client) FindLast(ctx context.Context, database, collection string) (any, error) {
	return c.collectionCall(ctx, OpFindLast, http.MethodGet, database, collection, "last")
}

// DropCollection deletes a collection and all of its documents.
func (c *Client) DropCollection(ctx context.Context, database, collection string) (any, error) {
	return c.collectionCall(ctx, OpDropCollection, http.MethodDelete, database, collection, "")
}

// Delete removes one document by id.
func (c *Client) Delete(ctx context.Context, database, collection, docID string) (any, error) {
	return c.documentCall(ctx, OpDelete, http.MethodDelete, database, collection, docID, nil)
}

// Update replaces the fields of one document.
func (c *Client) Update(ctx context.Context, database, collection, docID string, doc Document) (any, error) {
	if doc == nil {
		return nil, preconditionError(OpUpdate, "document is required")
	}

	return c.documentCall(ctx, OpUpdate, http.MethodPut, database, collection, docID, doc)
}

// UpdateMany applies doc to every document matching filter. The filter goes
// in the query string and the document in the body.
func (c *Client) UpdateMany(ctx context.Context, database, collection string, filter Filter, doc Document) (any, error) {
	if doc == nil {
		return nil, preconditionError(OpUpdateMany, "document is required")
	}

	path, err := resourcePath(OpUpdateMany, databaseSeg(database), collectionSeg(collection), literalSeg("updateMany"))
	if err != nil {
		return nil, err
	}

	query, err := encodeFilter(OpUpdateMany, filter)
	if err != nil {
		return nil, err
	}

	c.logger.Info("updating matching documents",
		slog.String("database", database),
		slog.String("collection", collection),
		slog.Int("filter_keys", len(filter)),
	)

	return c.call(ctx, OpUpdateMany, http.MethodPut, path, query, doc)
}

// collectionCall runs a body-less operation on /{db}/{coll}[/{suffix}].
func (c *Client) collectionCall(ctx context.Context, op, method, database, collection, suffix string) (any, error) {
	segments := []pathSegment{databaseSeg(database), collectionSeg(collection)}
	if suffix != "" {
		segments = append(segments, literalSeg(suffix))
	}

	path, err := resourcePath(op, segments...)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("collection operation",
		slog.String("op", op),
		slog.String("database", database),
		slog.String("collection", collection),
	)

	return c.call(ctx, op, method, path, nil, nil)
}

// documentCall runs an operation on /{db}/{coll}/{id}.
func (c *Client) documentCall(ctx context.Context, op, method, database, collection, docID string, doc Document) (any, error) {
	path, err := resourcePath(op, databaseSeg(database), collectionSeg(collection), idSeg(docID))
	if err != nil {
		return nil, err
	}

	c.logger.Debug("document operation",
		slog.String("op", op),
		slog.String("database", database),
		slog.String("collection", collection),
		slog.String("id", docID),
	)

	// A nil Document must not be sent as a JSON null body.
	var body any
	if doc != nil {
		body = doc
	}

	return c.call(ctx, op, method, path, nil, body)
}
