package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/stellaephile/whats-up-doc/internal/config"
	"github.com/stellaephile/whats-up-doc/internal/logger"
	"github.com/stellaephile/whats-up-doc/internal/model"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	assessAge      string
	assessDuration string
	assessPincode  string
	assessJSON     bool

	locatePincode   string
	locateLat       float64
	locateLng       float64
	locateSeverity  string
	locateCareTypes []string
	locateLimit     int
	locateJSON      bool
)

var assessCmd = &cobra.Command{
	Use:   "assess [symptoms]",
	Short: "Assess symptoms from the command line",
	Long: `Runs the two-stage triage on the given symptoms. When the classifier asks
clarifying questions they are read from stdin, one answer per line, and the
assessment is completed with them.`,
	Args: cobra.ExactArgs(1),
	RunE: runAssess,
}

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Find facilities near a pincode or point",
	RunE:  runLocate,
}

func init() {
	assessCmd.Flags().StringVar(&assessAge, "age", "", "patient age")
	assessCmd.Flags().StringVar(&assessDuration, "duration", "", "how long the symptoms have lasted")
	assessCmd.Flags().StringVar(&assessPincode, "pincode", "", "attach nearby facilities for this pincode")
	assessCmd.Flags().BoolVar(&assessJSON, "json", false, "output the assessment as JSON")
	rootCmd.AddCommand(assessCmd)

	locateCmd.Flags().StringVar(&locatePincode, "pincode", "", "6-digit Indian pincode")
	locateCmd.Flags().Float64Var(&locateLat, "lat", 0, "latitude (with --lng, instead of --pincode)")
	locateCmd.Flags().Float64Var(&locateLng, "lng", 0, "longitude")
	locateCmd.Flags().StringVarP(&locateSeverity, "severity", "s", string(model.SeverityModerate), "severity tier: mild, moderate, high or emergency")
	locateCmd.Flags().StringSliceVar(&locateCareTypes, "care-type", nil, "explicit care types (overrides the tier default)")
	locateCmd.Flags().IntVarP(&locateLimit, "limit", "n", 10, "maximum number of facilities")
	locateCmd.Flags().BoolVar(&locateJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(locateCmd)
}

// assessor is the part of the triage service the CLI session drives
type assessor interface {
	Assess(ctx context.Context, req model.AssessRequest) (*model.AssessResponse, error)
}

// locator is the part of the facility locator the CLI drives
type locator interface {
	Locate(ctx context.Context, req model.LocateRequest) (*model.LocateResponse, error)
}

func runAssess(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	ctx := logger.WithRequestID(cmd.Context(), uuid.NewString())

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	req := model.AssessRequest{
		Symptoms: args[0],
		Age:      assessAge,
		Duration: assessDuration,
		Pincode:  assessPincode,
	}
	resp, err := assessSession(ctx, a.triage, req, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("assessment failed: %w", err)
	}

	if assessJSON {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	printAssessment(cmd.OutOrStdout(), resp)
	return nil
}

// assessSession runs round 1 and, if questions come back, asks them on in and
// runs round 2 with the answers and the returned cache.
func assessSession(ctx context.Context, triage assessor, req model.AssessRequest, in io.Reader, out io.Writer) (*model.AssessResponse, error) {
	resp, err := triage.Assess(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.NeedsClarification || resp.Stage1Cache == nil {
		return resp, nil
	}

	answers, err := askQuestions(resp.ClarifyingQuestions, in, out)
	if err != nil {
		return nil, err
	}
	if len(answers) == 0 {
		return resp, nil
	}

	req.ClarifyingAnswers = answers
	req.Stage1Cache = resp.Stage1Cache
	return triage.Assess(ctx, req)
}

// askQuestions prints each question and reads one answer line. Blank answers
// are sent as "not specified" so answers stay aligned with their questions.
func askQuestions(questions []string, in io.Reader, out io.Writer) ([]string, error) {
	scanner := bufio.NewScanner(in)
	answers := make([]string, 0, len(questions))
	answered := false

	for i, q := range questions {
		fmt.Fprintf(out, "Q%d: %s\n> ", i+1, q)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("failed to read answer: %w", err)
			}
			break
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			answer = "not specified"
		} else {
			answered = true
		}
		answers = append(answers, answer)
	}
	fmt.Fprintln(out)

	if !answered {
		return nil, nil
	}
	return answers, nil
}

func printAssessment(out io.Writer, resp *model.AssessResponse) {
	if resp.NeedsClarification {
		fmt.Fprintln(out, "More information is needed:")
		for _, q := range resp.ClarifyingQuestions {
			fmt.Fprintf(out, "  - %s\n", q)
		}
		return
	}

	if resp.IsAutoEmergency {
		fmt.Fprintln(out, "🚨 EMERGENCY")
	}
	fmt.Fprintf(out, "Severity:    %d/10 (%s)\n", resp.Severity, resp.SeverityLevel)
	fmt.Fprintf(out, "Department:  %s\n", resp.PrimaryDepartment)
	fmt.Fprintf(out, "Specialties: %s\n", strings.Join(resp.Specialties, ", "))
	fmt.Fprintf(out, "Action:      %s\n", resp.RecommendedAction)
	if resp.Reasoning != "" {
		fmt.Fprintf(out, "Reasoning:   %s\n", resp.Reasoning)
	}
	if len(resp.RedFlags) > 0 {
		fmt.Fprintf(out, "Red flags:   %s\n", strings.Join(resp.RedFlags, ", "))
	}
	if len(resp.Facilities) > 0 {
		fmt.Fprintln(out)
		printFacilities(out, resp.Facilities)
	}
	fmt.Fprintf(out, "\n%s (%s)\n", resp.Disclaimer, resp.AssessmentMode)
}

func runLocate(cmd *cobra.Command, _ []string) error {
	req := model.LocateRequest{
		Pincode:       locatePincode,
		SeverityLevel: model.SeverityLevel(locateSeverity),
		CareTypes:     locateCareTypes,
		Limit:         locateLimit,
	}
	if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
		lat, lng := locateLat, locateLng
		req.Lat, req.Lng = &lat, &lng
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Bedrock.Enabled = false

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.locator == nil {
		return errors.New("facility search needs a database: set DATABASE_URL or DB_PASSWORD")
	}
	return locate(cmd.Context(), a.locator, req, cmd.OutOrStdout(), locateJSON)
}

func locate(ctx context.Context, l locator, req model.LocateRequest, out io.Writer, asJSON bool) error {
	resp, err := l.Locate(ctx, req)
	if err != nil {
		if errors.Is(err, model.ErrNoFacilitiesNearby) {
			fmt.Fprintln(out, "No facilities found within 10 km.")
			return nil
		}
		return fmt.Errorf("facility search failed: %w", err)
	}

	if asJSON {
		return printJSON(out, resp)
	}

	filter := "any care type"
	if resp.Filtered && len(resp.CareTypes) > 0 {
		filter = strings.Join(resp.CareTypes, ", ")
	}
	fmt.Fprintf(out, "Within %.0f km of (%.4f, %.4f), %s:\n\n", float64(resp.RadiusM)/1000, resp.Centroid.Lat, resp.Centroid.Lng, filter)
	printFacilities(out, resp.Facilities)
	return nil
}

func printFacilities(out io.Writer, facilities []model.FacilitySearchResult) {
	for i, f := range facilities {
		careType := "unknown type"
		if f.CareType != nil {
			careType = *f.CareType
		}
		fmt.Fprintf(out, "[%d] %s - %s (%.2f km)\n", i+1, f.Name, careType, f.DistanceKm)
		if len(f.MatchedReasons) > 0 {
			fmt.Fprintf(out, "    %s\n", strings.Join(f.MatchedReasons, ", "))
		}
	}
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
