package main

import (
	"github.com/urfave/cli/v2"

	"storefront/pkg/infrastructure/mysql"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply database migrations and exit",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dbCfg := mysqlConfig(cfg)
			db, err := mysql.Connect(c.Context, dbCfg)
			if err != nil {
				return err
			}
			defer db.Close()
			return mysql.Migrate(db, dbCfg.Database)
		},
	}
}
