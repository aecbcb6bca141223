package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/SludgePhD/LiVid/internal/logging"
	"github.com/SludgePhD/LiVid/internal/profiles"
)

// CreateProfileCmd creates the profile command with its subcommands.
func CreateProfileCmd() *cobra.Command {
	var profilesFile string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage capture profiles",
	}
	cmd.PersistentFlags().StringVar(&profilesFile, "profiles-file", "profiles.toml", "Path to profiles file")

	cmd.AddCommand(createProfileListCmd(&profilesFile))
	cmd.AddCommand(createProfileAddCmd(&profilesFile))
	cmd.AddCommand(createProfileRemoveCmd(&profilesFile))

	return cmd
}

func loadStore(profilesFile string) profiles.Store {
	logger := logging.GetLogger("profiles")
	store := profiles.NewTOML(profilesFile)
	if err := store.Load(); err != nil {
		logger.Error("Failed to load profiles", "error", err)
		os.Exit(1)
	}
	return store
}

func createProfileListCmd(profilesFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List capture profiles",
		Run: func(_ *cobra.Command, _ []string) {
			store := loadStore(*profilesFile)

			all := store.All()
			if len(all) == 0 {
				fmt.Println("no profiles")
				return
			}

			names := make([]string, 0, len(all))
			for name := range all {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				p := all[name]
				rate := p.FrameRate
				if rate == "" {
					rate = "default"
				}
				fmt.Printf("%s: %s %s %dx%d @%s buffers=%d\n",
					p.Name, p.Device, p.PixelFormat, p.Width, p.Height, rate, p.Buffers)
			}
		},
	}
}

func createProfileAddCmd(profilesFile *string) *cobra.Command {
	var profile profiles.Profile

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a capture profile",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			logger := logging.GetLogger("profiles")
			store := loadStore(*profilesFile)

			profile.Name = args[0]
			if err := store.Add(profile); err != nil {
				logger.Error("Failed to add profile", "error", err)
				os.Exit(1)
			}
			fmt.Printf("added profile %q\n", profile.Name)
		},
	}

	cmd.Flags().StringVarP(&profile.Device, "device", "d", "/dev/video0", "Device path or stable ID")
	cmd.Flags().StringVar(&profile.PixelFormat, "pixel-format", "YUYV", "Pixel format fourcc")
	cmd.Flags().Uint32Var(&profile.Width, "width", 1280, "Frame width")
	cmd.Flags().Uint32Var(&profile.Height, "height", 720, "Frame height")
	cmd.Flags().Uint32Var(&profile.Buffers, "buffers", defaultBufferCount, "Number of driver buffers")
	cmd.Flags().StringVar(&profile.FrameRate, "frame-rate", "", "Frame rate as FPS or NUM/DENOM")

	return cmd
}

func createProfileRemoveCmd(profilesFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a capture profile",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			logger := logging.GetLogger("profiles")
			store := loadStore(*profilesFile)

			if err := store.Remove(args[0]); err != nil {
				logger.Error("Failed to remove profile", "error", err)
				os.Exit(1)
			}
			fmt.Printf("removed profile %q\n", args[0])
		},
	}
}
