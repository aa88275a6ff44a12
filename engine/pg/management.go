package pg

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Tables lists the tables of the schema.
var Tables = []string{
	"batch",
	"definition",
	"deployment",
	"job",
	"operation_log",
	"resource",
	"scope",
	"task",
	"variable",
}

// versionTable carries the schema version as table comment.
const versionTable = "scope"

//go:embed ddl migration sql
var resources embed.FS

// migrateDatabase creates the schema, if no schema version is set.
func migrateDatabase(ctx *pgContext) error {
	versions, err := readVersions()
	if err != nil {
		return err
	}

	schemaVersion, err := selectSchemaVersion(ctx)
	if err != nil {
		return err
	}

	if schemaVersion != "" {
		return nil
	}

	ddl, err := resources.ReadDir("ddl")
	if err != nil {
		return fmt.Errorf("failed to list resources under ddl: %v", err)
	}

	for _, entry := range ddl {
		if entry.IsDir() {
			continue
		}

		name := "ddl/" + entry.Name()
		b, err := resources.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read resource %s: %v", name, err)
		}

		if _, err := ctx.tx.Exec(ctx.txCtx, string(b)); err != nil {
			return fmt.Errorf("failed to execute %s: %v", name, err)
		}
	}

	idx, err := resources.ReadDir("ddl/idx")
	if err != nil {
		return fmt.Errorf("failed to list resources under ddl/idx: %v", err)
	}

	for _, entry := range idx {
		name := "ddl/idx/" + entry.Name()
		b, err := resources.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read resource %s: %v", name, err)
		}

		scanner := bufio.NewScanner(bytes.NewReader(b))
		for scanner.Scan() {
			createIndex := scanner.Text()
			if createIndex == "" {
				continue
			}
			if _, err := ctx.tx.Exec(ctx.txCtx, createIndex); err != nil {
				return fmt.Errorf("failed to execute %s: %v", name, err)
			}
		}
	}

	commentOnTable := fmt.Sprintf("COMMENT ON TABLE %s IS %s", versionTable, quoteString(versions[len(versions)-1]))
	if _, err := ctx.tx.Exec(ctx.txCtx, commentOnTable); err != nil {
		return fmt.Errorf("failed to set schema version: %v", err)
	}

	return nil
}

func readVersions() ([]string, error) {
	b, err := resources.ReadFile("migration/version.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to read resource migration/version.txt: %v", err)
	}

	var versions []string

	scanner := bufio.NewScanner(bytes.NewReader(b))
	for scanner.Scan() {
		if version := scanner.Text(); version != "" {
			versions = append(versions, version)
		}
	}

	if len(versions) == 0 {
		return nil, fmt.Errorf("resource migration/version.txt contains no version")
	}

	return versions, nil
}

func selectSchemaVersion(ctx *pgContext) (string, error) {
	row := ctx.tx.QueryRow(ctx.txCtx, `
SELECT
	description
FROM
	pg_description
INNER JOIN
	pg_class
ON
	pg_description.objoid = pg_class.oid
INNER JOIN
	pg_namespace
ON
	pg_class.relnamespace = pg_namespace.oid
WHERE
	nspname = $1 AND
	relname = $2
`, ctx.options.databaseSchema, versionTable)

	var schemaVersion string
	if err := row.Scan(&schemaVersion); err != nil {
		if err != pgx.ErrNoRows {
			return "", fmt.Errorf("failed to select schema version: %v", err)
		}
	}

	return schemaVersion, nil
}
