// Command fitforge runs and administers the FitForge API.
//
//	fitforge serve             # HTTP API plus gRPC health
//	fitforge migrate           # run pending migrations
//	fitforge migrate:rollback  # roll back the last batch
//	fitforge migrate:status
//	fitforge seed              # admin, trainer, demo products and plans
//	fitforge route:list        # list named API routes
//
// Configuration comes from config/app.json, .env and the environment; see
// the config package for every key.
package main
