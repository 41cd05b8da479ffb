// Package pg provides PostgreSQL connection pooling, migrations and health
// checks on top of pgx.
//
// Connect retries transient failures during startup, Migrate applies goose
// migrations from a configurable directory, and Healthcheck exposes a probe
// function for readiness endpoints.
//
//	cfg := pg.Config{ConnectionString: os.Getenv("PG_CONN_URL")}
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//		return err
//	}
package pg
