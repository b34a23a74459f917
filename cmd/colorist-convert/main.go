// Command colorist-convert converts a PNG image between colour spaces
// using the colorist core: profile-aware colour conversion, optional
// luminance rescaling with tone mapping, auto-grading, resizing, and
// Hald CLUT postprocessing.
//
// Usage:
//
//	colorist-convert [flags] input.png output.png
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"slices"
	"strings"

	"golang.org/x/exp/maps"

	"go.colorist.dev/colorist"
)

var builtinProfiles = map[string]func() colorist.Profile{
	"srgb": colorist.SRGBProfile,
	"bt709-g22": func() colorist.Profile {
		return colorist.NewProfile(colorist.BT709Primaries, colorist.TransferCurve{Kind: colorist.CurveGamma, Gamma: 2.2}, 100, "BT.709 Gamma 2.2 100nit")
	},
	"p3-g22": func() colorist.Profile {
		return colorist.NewProfile(colorist.DCIP3Primaries, colorist.TransferCurve{Kind: colorist.CurveGamma, Gamma: 2.2}, 100, "P3 Gamma 2.2 100nit")
	},
	"bt2020-pq": func() colorist.Profile {
		return colorist.NewProfile(colorist.BT2020Primaries, colorist.TransferCurve{Kind: colorist.CurvePQ}, 10000, "BT.2020 PQ 10000nit")
	},
	"bt2020-hlg": func() colorist.Profile {
		return colorist.NewProfile(colorist.BT2020Primaries, colorist.TransferCurve{Kind: colorist.CurveHLG}, 0, "BT.2020 HLG")
	},
}

var (
	srcProfile  = flag.String("src-profile", "srgb", "source profile (see -list-profiles)")
	listNames   = flag.Bool("list-profiles", false, "list built-in profile names and exit")
	gamma       = flag.Float64("gamma", -1, "destination gamma (-1 inherit, 0 auto)")
	luminance   = flag.Float64("luminance", -1, "destination luminance in nits (-1 inherit, 0 auto)")
	bpp         = flag.Int("bpp", 0, "destination bits per channel (0 inherit, 8 or 16)")
	autoGrade   = flag.Bool("autograde", false, "grade output gamma/luminance automatically")
	resizeSpec  = flag.String("resize", "", "resize to WxH (either side may be omitted)")
	iccOverride = flag.String("icc", "", "override destination profile with this ICC file")
	haldPath    = flag.String("hald", "", "postprocess through this Hald CLUT PNG")
	tonemapMode = flag.String("tonemap", "auto", "tonemap mode: auto, on, off")
	description = flag.String("description", "", "destination profile description")
	copyright   = flag.String("copyright", "", "destination profile copyright")
	jobs        = flag.Int("jobs", 0, "worker count (0 = one per CPU)")
	verbose     = flag.Bool("v", false, "verbose output")
)

func main() {
	flag.Parse()

	if *listNames {
		names := maps.Keys(builtinProfiles)
		slices.Sort(names)
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	if flag.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "usage: colorist-convert [flags] input.png output.png\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(flag.Arg(0), flag.Arg(1)); err != nil {
		log.Fatalf("** ERROR: %v", err)
	}
}

func run(inPath, outPath string) error {
	makeProfile, ok := builtinProfiles[*srcProfile]
	if !ok {
		return fmt.Errorf("unknown source profile %q (try -list-profiles)", *srcProfile)
	}

	ctx := colorist.NewContext()
	ctx.Verbose = *verbose
	ctx.Log = func(section, format string, args ...any) {
		log.Printf("[%s] "+format, append([]any{section}, args...)...)
	}
	ctx.LogError = func(format string, args ...any) {
		log.Printf("** ERROR: "+format, args...)
	}

	src, err := readPNG(inPath, makeProfile())
	if err != nil {
		return err
	}

	params := colorist.NewConversionParams()
	params.Gamma = *gamma
	params.Luminance = *luminance
	params.Depth = colorist.Depth(*bpp)
	params.AutoGrade = *autoGrade
	params.ICCOverride = *iccOverride
	params.Description = *description
	params.Copyright = *copyright
	params.Jobs = *jobs

	switch *tonemapMode {
	case "on":
		params.Tonemap = colorist.TonemapOn
	case "off":
		params.Tonemap = colorist.TonemapOff
	case "auto":
		params.Tonemap = colorist.TonemapAuto
	default:
		return fmt.Errorf("unknown tonemap mode %q", *tonemapMode)
	}

	if *resizeSpec != "" {
		w, h, err := parseResize(*resizeSpec)
		if err != nil {
			return err
		}
		params.ResizeW, params.ResizeH = w, h
	}

	if *haldPath != "" {
		hald, err := readPNG(*haldPath, colorist.Profile{})
		if err != nil {
			return err
		}
		params.Hald = hald
	}

	dst, err := colorist.Convert(ctx, src, params)
	if err != nil {
		return err
	}
	return writePNG(outPath, dst)
}

func parseResize(spec string) (w, h int, err error) {
	parts := strings.SplitN(spec, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid resize spec %q, want WxH", spec)
	}
	if parts[0] != "" {
		if _, err := fmt.Sscanf(parts[0], "%d", &w); err != nil {
			return 0, 0, fmt.Errorf("invalid resize width %q", parts[0])
		}
	}
	if parts[1] != "" {
		if _, err := fmt.Sscanf(parts[1], "%d", &h); err != nil {
			return 0, 0, fmt.Errorf("invalid resize height %q", parts[1])
		}
	}
	if w <= 0 && h <= 0 {
		return 0, 0, fmt.Errorf("resize spec %q has no positive dimension", spec)
	}
	return w, h, nil
}

func readPNG(path string, profile colorist.Profile) (*colorist.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoded, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	b := decoded.Bounds()
	img := colorist.NewImage(b.Dx(), b.Dy(), colorist.FormatRGBA, colorist.Depth8, profile)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(decoded.At(x, y)).(color.NRGBA)
			img.Pixels[i] = float64(c.R)
			img.Pixels[i+1] = float64(c.G)
			img.Pixels[i+2] = float64(c.B)
			img.Pixels[i+3] = float64(c.A)
			i += 4
		}
	}
	return img, nil
}

func writePNG(path string, img *colorist.Image) error {
	if img.Depth != colorist.Depth8 && img.Depth != colorist.Depth16 {
		return fmt.Errorf("cannot write %d-bit pixels as PNG", img.Depth)
	}

	out := image.NewNRGBA64(image.Rect(0, 0, img.Width, img.Height))
	ch := 4
	if img.Format != colorist.FormatRGBA {
		ch = 3
	}
	scale := uint32(257) // 8-bit code -> 16-bit code
	if img.Depth == colorist.Depth16 {
		scale = 1
	}
	i := 0
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			px := img.Pixels[i : i+ch]
			a := uint16(0xFFFF)
			if ch == 4 {
				a = uint16(uint32(px[3]) * scale)
			}
			out.SetNRGBA64(x, y, color.NRGBA64{
				R: uint16(uint32(px[0]) * scale),
				G: uint16(uint32(px[1]) * scale),
				B: uint16(uint32(px[2]) * scale),
				A: a,
			})
			i += ch
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, out)
}
