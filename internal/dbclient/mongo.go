package dbclient

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"pagebuilder/internal/domain"
)

// mongoConnector implements Connector for MongoDB. Tables are collections.
type mongoConnector struct {
	client *mongo.Client
	dbName string
}

func newMongoConnector(conn *domain.DatabaseConnection, password string) (*mongoConnector, error) {
	uri, dbName := buildMongoURI(conn, password)

	logURI := uri
	if password != "" {
		logURI = strings.ReplaceAll(logURI, password, "***")
	}
	log.Printf("[MONGO] Connecting with URI: %s (database %s)", logURI, dbName)

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &mongoConnector{client: client, dbName: dbName}, nil
}

// buildMongoURI accepts either a full mongodb:// or mongodb+srv:// URI in
// Host (Atlas style, with an optional <password> placeholder) or a bare
// host name. The database defaults to the URI path, then "test".
func buildMongoURI(conn *domain.DatabaseConnection, password string) (uri, dbName string) {
	if strings.HasPrefix(conn.Host, "mongodb+srv://") || strings.HasPrefix(conn.Host, "mongodb://") {
		uri = conn.Host
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", password)
			uri = strings.ReplaceAll(uri, "<db_password>", password)
		}
	} else {
		port := conn.Port
		if port == 0 {
			port = 27017
		}
		if conn.Username != "" {
			uri = fmt.Sprintf("mongodb://%s:%s@%s:%d", conn.Username, password, conn.Host, port)
		} else {
			uri = fmt.Sprintf("mongodb://%s:%d", conn.Host, port)
		}
	}

	dbName = conn.Database
	if dbName == "" {
		dbName = dbFromURI(uri)
	}
	if dbName == "" {
		dbName = "test"
	}
	return uri, dbName
}

// dbFromURI extracts the path segment of user:pass@host/DB?params.
func dbFromURI(uri string) string {
	rest := uri
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		rest = strings.TrimPrefix(rest, prefix)
	}
	if at := strings.LastIndex(rest, "@"); at != -1 {
		rest = rest[at+1:]
	}
	slash := strings.Index(rest, "/")
	if slash == -1 {
		return ""
	}
	path := rest[slash+1:]
	if q := strings.Index(path, "?"); q != -1 {
		path = path[:q]
	}
	return path
}

func (m *mongoConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *mongoConnector) Preview(ctx context.Context, collection string, limit int) (*Preview, error) {
	if collection == "" || strings.ContainsAny(collection, "$\x00") {
		return nil, fmt.Errorf("invalid collection name %q", collection)
	}
	limit = ClampLimit(limit)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	coll := m.client.Database(m.dbName).Collection(collection)
	cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetLimit(int64(limit+1)))
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bson.D
	truncated := false
	for cursor.Next(ctx) {
		if len(docs) == limit {
			truncated = true
			break
		}
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	columns, rows := docsToRows(docs)
	return &Preview{Columns: columns, Rows: rows, Truncated: truncated}, nil
}

// docsToRows flattens documents into a table: _id first, then field
// names alphabetically; missing fields are nil.
func docsToRows(docs []bson.D) ([]string, [][]any) {
	seen := map[string]bool{}
	var columns []string
	for _, doc := range docs {
		for _, elem := range doc {
			if !seen[elem.Key] {
				seen[elem.Key] = true
				columns = append(columns, elem.Key)
			}
		}
	}
	sort.SliceStable(columns, func(i, j int) bool {
		if columns[i] == "_id" {
			return true
		}
		if columns[j] == "_id" {
			return false
		}
		return columns[i] < columns[j]
	})

	rows := make([][]any, 0, len(docs))
	for _, doc := range docs {
		row := make([]any, len(columns))
		byKey := make(map[string]any, len(doc))
		for _, elem := range doc {
			byKey[elem.Key] = elem.Value
		}
		for j, col := range columns {
			if v, ok := byKey[col]; ok {
				row[j] = fmt.Sprintf("%v", v)
			}
		}
		rows = append(rows, row)
	}
	return columns, rows
}

func (m *mongoConnector) Introspect(ctx context.Context) (*SchemaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	db := m.client.Database(m.dbName)
	collections, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	sort.Strings(collections)

	schema := &SchemaInfo{}
	for _, name := range collections {
		// Sample one document for field names
		var doc bson.M
		err := db.Collection(name).FindOne(ctx, bson.M{}).Decode(&doc)
		if err != nil {
			schema.Tables = append(schema.Tables, TableInfo{Name: name})
			continue
		}
		cols := make([]ColumnInfo, 0, len(doc))
		for k, v := range doc {
			cols = append(cols, ColumnInfo{Name: k, Type: fmt.Sprintf("%T", v)})
		}
		sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
		schema.Tables = append(schema.Tables, TableInfo{Name: name, Columns: cols})
	}
	return schema, nil
}

func (m *mongoConnector) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
