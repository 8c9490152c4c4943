// main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/fairwaylabs/tripgraph"
	"github.com/fairwaylabs/tripgraph/internal/adapters"
	"github.com/fairwaylabs/tripgraph/internal/cache"
	"github.com/fairwaylabs/tripgraph/internal/planfile"
	"github.com/fairwaylabs/tripgraph/internal/prompt"
	"github.com/fairwaylabs/tripgraph/internal/scheduler"
	"github.com/fairwaylabs/tripgraph/internal/workers"
)

func main() {
	ctx := context.Background()

	// Ensure GEMINI_API_KEY environment variable is set
	if os.Getenv("GEMINI_API_KEY") == "" {
		log.Fatal("GEMINI_API_KEY environment variable not set.")
	}

	// Initialize Genkit with the Google AI plugin via the prompt registry
	registry, err := prompt.NewRegistry(ctx,
		genkit.WithPlugins(&googlegenai.GoogleAI{}),
		genkit.WithDefaultModel("googleai/gemini-2.0-flash"),
	)
	if err != nil {
		log.Fatal("Genkit initialization failed: ", err)
	}
	g := registry.Genkit()

	// Create dependencies
	planCache := cache.NewInMemoryCache(10 * time.Minute)
	fetchWorkers := workers.SetupWorkers(workers.SampleDataset())

	// --- Define Genkit Flows ---

	// 1. Planner Flow: question + worker schemas -> fetch plan draft
	plannerFlow := genkit.DefineFlow(g, "plannerFlow",
		func(ctx context.Context, input *tripgraph.PlannerInput) (*tripgraph.PlanDraft, error) {
			schemaJSON, err := json.MarshalIndent(input.WorkerSchema, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to render worker schemas: %w", err)
			}

			promptText := fmt.Sprintf(
				`Today is %s. Break the traveler's question into fetch slots.

Question: %q

Known fields already on hand (do NOT plan slots for these): %v

Available workers and the fields each can produce:
%s

Output a JSON object matching this Go type:

type SlotSpec struct {
    ID           string   `+"`json:\"id\"`"+`
    TargetField  string   `+"`json:\"target_field\"`"+`
    Description  string   `+"`json:\"description\"`"+`
    Owner        string   `+"`json:\"owner\"`"+`
    Dependencies []string `+"`json:\"dependencies\"`"+`
}
type PlanDraft struct {
    Slots []SlotSpec `+"`json:\"slots\"`"+`
}

Rules:
- Owner must be one of the worker names above.
- A slot whose instruction needs another slot's value lists that slot in
  Dependencies and references the value as ${target_field}.
- Use simple IDs ("s1", "s2").

JSON Plan:
`,
				input.CurrentDate, input.Question, input.KnownFields, schemaJSON,
			)

			draft, _, err := genkit.GenerateData[tripgraph.PlanDraft](ctx, g,
				ai.WithPrompt(promptText),
			)
			if err != nil {
				return nil, fmt.Errorf("planner generation failed: %w", err)
			}
			return draft, nil
		},
	)

	// 2. Synthesis Flow: question + gathered facts -> final answer
	synthesisFlow := genkit.DefineFlow(g, "synthesisFlow",
		func(ctx context.Context, input *adapters.SynthesizerFlowInput) (string, error) {
			var facts strings.Builder
			for key, val := range input.Facts {
				facts.WriteString(fmt.Sprintf("- %s: %s\n", key, val))
			}

			caveat := ""
			if input.Reason != string(tripgraph.ReasonComplete) {
				caveat = fmt.Sprintf(
					"\nGathering stopped early (%s: %s). Answer with what is known and say plainly what could not be determined.\n",
					input.Reason, input.Detail,
				)
			}

			promptText := fmt.Sprintf(
				`Answer the traveler's question using only the facts below.

Question: %q

Facts:
%s%s
Answer:`,
				input.Question, facts.String(), caveat,
			)

			resp, err := genkit.Generate(ctx, g, ai.WithPrompt(promptText))
			if err != nil {
				return "", fmt.Errorf("synthesis generation failed: %w", err)
			}
			return resp.Text(), nil
		},
	)

	// --- Instantiate Adapters ---
	var planner tripgraph.Planner = adapters.NewGenkitPlannerAdapter(plannerFlow, planCache)
	synthesizerAdapter := adapters.NewGenkitSynthesizerAdapter(synthesisFlow)

	// A plan file pins the fetch plan, bypassing model-driven planning.
	if path := os.Getenv("TRIPGRAPH_PLAN_FILE"); path != "" {
		planner, err = planfile.NewStaticPlanner(path)
		if err != nil {
			log.Fatal("failed to load plan file: ", err)
		}
		log.Printf("Using static plan from %s", path)
	}

	// --- Assemble the Engine ---
	config := tripgraph.DefaultConfig()
	engine, err := tripgraph.New(ctx, g,
		tripgraph.WithConfig(config),
		tripgraph.WithPlanner(planner),
		tripgraph.WithGatherer(scheduler.NewRunner(
			scheduler.WithRunnerMaxIterations(config.MaxIterations),
			scheduler.WithWorkerTimeout(config.WorkerTimeout),
		)),
		tripgraph.WithSynthesizer(synthesizerAdapter),
		tripgraph.WithCache(planCache),
		tripgraph.WithWorkers(fetchWorkers),
	)
	if err != nil {
		log.Fatal("engine assembly failed: ", err)
	}

	// --- Expose the turn as a Genkit flow ---
	session := tripgraph.NewSession("golf-weekend", "Jordan Lee")
	_ = genkit.DefineFlow(g, "tripgraphFlow",
		func(ctx context.Context, question string) (string, error) {
			return engine.Ask(ctx, session, question)
		},
	)

	log.Println("Genkit initialized. Tripgraph flows defined.")
	log.Println(`To run: genkit flow run tripgraphFlow '"What time do we tee off?"'`)
	// Keep the application running for local testing with genkit start
	select {}
}
