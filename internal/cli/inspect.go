package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ggufd/internal/manager"
	"ggufd/internal/registry"
)

var (
	keyColor    = color.New(color.FgCyan)
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
	offColor    = color.New(color.FgHiBlack)
)

func printKV(w io.Writer, key string, val any) {
	keyColor.Fprintf(w, "  %-26s", key+":")
	fmt.Fprintf(w, " %v\n", val)
}

func yesNo(w io.Writer, key string, v bool) {
	keyColor.Fprintf(w, "  %-26s", key+":")
	if v {
		okColor.Fprintln(w, " yes")
		return
	}
	offColor.Fprintln(w, " no")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMetadataCmd(g *globalOpts) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "metadata <model.gguf>",
		Short: "Describe a model file from its name and size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := registry.Inspect(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(g.stdout, md)
			}
			headerColor.Fprintln(g.stdout, md.FileName)
			printKV(g.stdout, "Size", fmt.Sprintf("%s GB (%d bytes)", md.FileSizeGB, md.FileSizeBytes))
			printKV(g.stdout, "Parameters", md.Parameters)
			printKV(g.stdout, "Quantization", md.Quantization)
			printKV(g.stdout, "Architecture", md.Architecture)
			printKV(g.stdout, "Estimated layers", md.EstimatedLayers)
			printKV(g.stdout, "Estimated vocab size", md.EstimatedVocabSize)
			printKV(g.stdout, "Estimated context length", md.EstimatedContextLength)
			printKV(g.stdout, "Model type", md.ModelType)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newBackendCmd(g *globalOpts) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Report the compiled inference backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.resolve(cmd)
			if err != nil {
				return err
			}
			info := manager.New(fnNewRuntime(cfg.Runtime)).Backend()
			if asJSON {
				return printJSON(g.stdout, info)
			}
			headerColor.Fprintln(g.stdout, "Backend: "+info.Backend)
			yesNo(g.stdout, "CUDA", info.CUDAAvailable)
			yesNo(g.stdout, "Vulkan", info.VulkanAvailable)
			yesNo(g.stdout, "Metal", info.MetalAvailable)
			yesNo(g.stdout, "GPU offload", info.GPUOffload)
			printKV(g.stdout, "Recommended GPU layers", info.RecommendedGPULayers)
			fmt.Fprintln(g.stdout, info.Message)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
