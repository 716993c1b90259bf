package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/brojonat/clawsignal/service/profile"
)

func rulesCommand() *cli.Command {
	return &cli.Command{
		Name:  "rules",
		Usage: "Print the effective scoring rules as YAML",
		Description: `Prints the built-in scoring rules, or the result of overlaying
a rules file on top of them. The output is itself a valid rules file.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Scoring rules YAML file to overlay on the defaults",
				EnvVars: []string{"SCORING_RULES_FILE"},
			},
		},
		Action: func(c *cli.Context) error {
			rules := profile.DefaultRules()
			if path := c.String("file"); path != "" {
				loaded, err := profile.LoadRules(path)
				if err != nil {
					return err
				}
				rules = loaded
			}

			out, err := yaml.Marshal(rules)
			if err != nil {
				return fmt.Errorf("failed to encode scoring rules: %w", err)
			}
			_, err = c.App.Writer.Write(out)
			return err
		},
	}
}
