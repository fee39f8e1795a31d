package main

import (
	"codelens/internal/mcp/openapi"
	"codelens/internal/mcp/schema"

	"github.com/urfave/cli/v2"
)

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the OpenAPI description of the engine operations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "tools",
				Usage: "Print the tool definition instead",
			},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("tools") {
				defs, err := schema.BuildToolDefinitions(nil)
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, defs)
			}
			doc := openapi.Document()
			if err := doc.Validate(c.Context); err != nil {
				return err
			}
			return printJSON(c.App.Writer, doc)
		},
	}
}
