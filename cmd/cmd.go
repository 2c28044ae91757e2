// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: true,
		},
	}
}

// trackPickFlags select one search result or local track for commands acting on a single track.
func trackPickFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "index",
			Aliases: []string{"i"},
			Usage:   "Position of the track in the result list",
		},
		&cli.StringFlag{
			Name:    "provider",
			Aliases: []string{"p"},
			Usage:   "Search only this catalog (kuwo, kugou, bodian, netease)",
		},
		&cli.BoolFlag{
			Name:  "local",
			Usage: "Pick from the local library instead of online results",
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Write a default config if missing, then initialize the database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "search",
		Aliases: []string{"s"},
		Usage:   "Search every online catalog and print the merged results",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "query",
			},
		},
		Flags: append(jsonFlags(),
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   "Search only this catalog (kuwo, kugou, bodian, netease)",
			},
		),
		Action: r.Search,
	}
}

func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve a catalog track to a playable URL",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "provider",
				Aliases:  []string{"p"},
				Usage:    "Catalog the track belongs to",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "uri",
				Usage:    "Origin URI returned by search",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "id",
				Usage: "Catalog track id, when the catalog needs it",
			},
		},
		Action: r.Resolve,
	}
}

func sourcesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "sources",
		Aliases: []string{"src"},
		Usage:   "Manage catalog endpoints",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List endpoints and the selected one per catalog",
				Flags:  jsonFlags(),
				Action: r.SourcesList,
			},
			{
				Name:  "add",
				Usage: "Add a custom endpoint",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "provider"},
					&cli.StringArg{Name: "name"},
					&cli.StringArg{Name: "url"},
				},
				Action: r.SourcesAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a custom endpoint",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "provider"},
					&cli.StringArg{Name: "url"},
				},
				Action: r.SourcesRemove,
			},
			{
				Name:  "select",
				Usage: "Select the endpoint used for a catalog",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "provider"},
					&cli.StringArg{Name: "url"},
				},
				Action: r.SourcesSelect,
			},
		},
	}
}

func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Manage library playlists",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List playlists",
				Flags:  jsonFlags(),
				Action: r.PlaylistsList,
			},
			{
				Name:  "show",
				Usage: "Show the tracks of a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  jsonFlags(),
				Action: r.PlaylistsShow,
			},
			{
				Name:  "create",
				Usage: "Create a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Action: r.PlaylistsCreate,
			},
			{
				Name:  "rename",
				Usage: "Rename a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "name"},
				},
				Action: r.PlaylistsRename,
			},
			{
				Name:  "delete",
				Usage: "Delete a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.PlaylistsDelete,
			},
			{
				Name:  "add",
				Usage: "Search for a track and add it to a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "query"},
				},
				Flags:  trackPickFlags(),
				Action: r.PlaylistsAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a track from a playlist by its key",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "key"},
				},
				Action: r.PlaylistsRemove,
			},
			{
				Name:  "export",
				Usage: "Export playlists to files",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "id",
						Usage: "Playlist ID to export (repeatable, default: all)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, markdown, txt, json or yaml",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent workers",
						Value: 4,
					},
				},
				Action: r.PlaylistsExport,
			},
		},
	}
}

func favoritesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "favorites",
		Aliases: []string{"fav"},
		Usage:   "Manage favorites",
		Commands: []*cli.Command{
			{
				Name:  "toggle",
				Usage: "Search for a track and add or remove it from favorites",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags:  trackPickFlags(),
				Action: r.FavoritesToggle,
			},
		},
	}
}

func hideCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "hide",
		Usage: "Hide a local track by id",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Action: r.Hide,
	}
}

func unhideCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "unhide",
		Usage: "Restore a hidden local track by id",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Action: r.Unhide,
	}
}

func localCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "local",
		Usage: "List local tracks",
		Flags: append(jsonFlags(),
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Only tracks whose title or artist contains this text",
			},
			&cli.BoolFlag{
				Name:  "hidden",
				Usage: "Include hidden tracks",
			},
		),
		Action: r.Local,
	}
}

func onlineCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "online",
		Usage: "Show or set whether searches query online catalogs (on|off)",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "state"},
		},
		Action: r.Online,
	}
}

func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play a track and keep the queue running until interrupted",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags: append(trackPickFlags(),
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Play from this library playlist instead of searching",
			},
		),
		Action: r.Play,
	}
}

// tuiCommand returns the top-level TUI command for interactive playback.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive player",
		Action:  r.TUI,
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the player with the local control API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default from config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (default from config)",
			},
		},
		Action: r.Serve,
	}
}
