package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/summitupfitters/slugsvc/internal/cms"
	"github.com/summitupfitters/slugsvc/internal/repo"
	"github.com/summitupfitters/slugsvc/internal/service"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <identifier>",
	Short: "Resolve an identifier against the content store",
	Long: `Resolve maps an identifier (current slug, historical slug, or alias)
to its vehicle, exactly as the /resolve endpoint does, and prints the
canonical slug and whether a redirect would be issued.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	baseURL := os.Getenv("CMS_BASE_URL")
	dataset := os.Getenv("CMS_DATASET")
	if baseURL == "" || dataset == "" {
		return fmt.Errorf("CMS_BASE_URL and CMS_DATASET must be set")
	}

	store := cms.New(baseURL, dataset, os.Getenv("CMS_TOKEN"))
	resolver := service.NewResolverService(repo.NewVehicleRepo(store))

	resolution, err := resolver.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	v := resolution.Vehicle
	fmt.Printf("vehicle:        %s (%s)\n", v.ID, v.Title)
	fmt.Printf("canonical slug: %s\n", v.Slug.Current)
	fmt.Printf("redirect:       %t\n", resolution.IsRedirect)
	if len(v.SlugAliases) > 0 {
		fmt.Printf("aliases:        %v\n", v.SlugAliases)
	}
	if len(v.SlugHistory) > 0 {
		fmt.Println("history:")
		for _, e := range v.SlugHistory {
			fmt.Printf("  %s  (%s → %s)\n", e.Slug,
				e.ActiveFrom.Format("2006-01-02"), e.ActiveTo.Format("2006-01-02"))
		}
	}
	return nil
}
