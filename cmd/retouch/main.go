package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gioui.org/app"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/example/retouch"
	"github.com/example/retouch/inpaint"
	"github.com/example/retouch/utils"
)

const HelpBanner = `
┬─┐┌─┐┌┬┐┌─┐┬ ┬┌─┐┬ ┬
├┬┘├┤  │ │ ││ ││  ├─┤
┴└─└─┘ ┴ └─┘└─┘└─┘┴ ┴

Interactive object removal powered by generative inpainting.
    Version: %s

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// spinner used to instantiate and call the progress indicator.
var spinner *utils.Spinner

// Version indicates the current build version.
var Version string

var (
	// Flags
	source      = flag.String("in", pipeName, "Source image")
	destination = flag.String("out", pipeName, "Destination image")
	maskPath    = flag.String("mask", "", "Precomputed mask image (white=replace, black=preserve)")
	gui         = flag.Bool("gui", false, "Open the interactive mask editor")
	provider    = flag.String("provider", "gemini", "Inpainting backend (gemini|http)")
	endpoint    = flag.String("endpoint", "", "Inpainting endpoint URL for the http backend")
	model       = flag.String("model", "", "Model name for the gemini backend")
	prompt      = flag.String("prompt", "", "Custom inpainting prompt")
	brushSize   = flag.Float64("brush", retouch.DefaultBrushSize, "Brush radius in screen pixels")
	retries     = flag.Int("retries", 3, "Number of attempts against a rate limited backend")
	timeout     = flag.Duration("timeout", 2*time.Minute, "Per request timeout")
)

func main() {
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, HelpBanner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	// Load .env if present so GEMINI_API_KEY can live next to the project.
	_ = godotenv.Load()

	client := newClient()

	if *gui {
		runGUI(client)
		return
	}

	if *maskPath == "" {
		flag.Usage()
		log.Fatal(fmt.Sprintf("%s%s",
			utils.DecorateText("\nPlease provide a mask image with -mask or use the -gui mode!", utils.ErrorMessage),
			utils.DefaultColor,
		))
	}

	spinnerText := fmt.Sprintf("%s %s",
		utils.DecorateText("✦ RETOUCH", utils.StatusMessage),
		utils.DecorateText("is removing the masked object...", utils.DefaultMessage))
	spinner = utils.NewSpinner(spinnerText, time.Millisecond*200, true)

	now := time.Now()
	err := process(*source, *destination, client)
	printStatus(*destination, err)

	fmt.Fprintf(os.Stderr, "\nExecution time: %s\n",
		utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage))
}

// newClient assembles the inpainting backend behind a retry policy.
func newClient() inpaint.Client {
	var client inpaint.Client

	switch *provider {
	case "http":
		if *endpoint == "" {
			log.Fatal(utils.DecorateText("Please provide an -endpoint when using the http backend!\n", utils.ErrorMessage))
		}
		client = inpaint.NewHTTP(*endpoint, *timeout)
	case "gemini":
		client = inpaint.NewGemini(*model)
	default:
		log.Fatalf(utils.DecorateText("Unsupported inpainting backend: %s\n", utils.ErrorMessage), *provider)
	}

	return inpaint.NewRetrier(client, *retries, 2*time.Second)
}

// runGUI opens the interactive mask editor. The Gio event loop must
// own the main thread, so the session runs on a separate goroutine.
func runGUI(client inpaint.Client) {
	img, err := loadSource(*source)
	if err != nil {
		log.Fatalf(utils.DecorateText("Failed to load the source image: %v\n", utils.ErrorMessage), err)
	}

	session, err := retouch.NewSession(img, client, float64(img.Bounds().Dx()), float64(img.Bounds().Dy()))
	if err != nil {
		log.Fatalf(utils.DecorateText("Failed to start the session: %v\n", utils.ErrorMessage), err)
	}
	session.Surface().BrushSize = *brushSize
	if *prompt != "" {
		session.Prompt = *prompt
	}

	go func() {
		if err := retouch.NewGUI(session).Run(); err != nil {
			log.Printf(utils.DecorateText("GUI error: %v\n", utils.ErrorMessage), err)
			os.Exit(1)
		}

		// Persist the last confirmed state when a destination is set.
		if *destination != pipeName {
			if err := save(*destination, session.Current()); err != nil {
				log.Fatalf(utils.DecorateText("Failed to save the result: %v\n", utils.ErrorMessage), err)
			}
		}
		os.Exit(0)
	}()
	app.Main()
}

// process runs one headless edit: read the source and the mask,
// inpaint, composite and write the output.
func process(in, out string, client inpaint.Client) error {
	img, err := loadSource(in)
	if err != nil {
		return err
	}

	mask, err := retouch.DecodeImageFile(*maskPath)
	if err != nil {
		return err
	}

	imgPNG, err := retouch.EncodePNG(img)
	if err != nil {
		return err
	}
	maskPNG, err := retouch.EncodePNG(mask)
	if err != nil {
		return err
	}

	// Capture CTRL-C and restore the cursor visibility back.
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalChan
		spinner.RestoreCursor()
		os.Exit(1)
	}()

	spinner.Start()

	reply, err := client.Inpaint(context.Background(), imgPNG, maskPNG, *prompt)

	stopMsg := fmt.Sprintf("%s %s",
		utils.DecorateText("✦ RETOUCH", utils.StatusMessage),
		utils.DecorateText("is removing the masked object... ✔", utils.DefaultMessage))
	spinner.StopMsg = stopMsg
	spinner.Stop()

	if err != nil {
		return err
	}

	result, err := retouch.DecodeImage(bytes.NewReader(reply))
	if err != nil {
		return err
	}

	final, err := retouch.NewCompositor().Composite(img, result, mask)
	if err != nil {
		return err
	}

	return save(out, final)
}

// loadSource reads the input image from a URL, a regular file or stdin.
func loadSource(in string) (*image.NRGBA, error) {
	if utils.IsValidUrl(in) {
		src, err := utils.DownloadImage(in)
		if src != nil {
			defer src.Close()
			defer os.Remove(src.Name())
		}
		if err != nil {
			return nil, err
		}
		return retouch.DecodeImageFile(src.Name())
	}

	if in == pipeName {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, errors.New("`-` should be used with a pipe for stdin")
		}
		return retouch.DecodeImage(os.Stdin)
	}

	return retouch.DecodeImageFile(in)
}

// save writes the image to a regular file or stdout.
func save(out string, img *image.NRGBA) error {
	if out == pipeName {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.New("`-` should be used with a pipe for stdout")
		}
		return retouch.EncodeImage(os.Stdout, img)
	}

	dst, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("unable to create the destination file: %v", err)
	}
	defer dst.Close()

	return retouch.EncodeImage(dst, img)
}

// printStatus displays the relevant information about the edit.
func printStatus(fname string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr,
			utils.DecorateText("\nError removing the object: %s", utils.ErrorMessage),
			utils.DecorateText(fmt.Sprintf("\n\tReason: %v\n", err.Error()), utils.DefaultMessage),
		)
		os.Exit(1)
	}
	if fname != pipeName {
		fmt.Fprintf(os.Stderr, "\nThe retouched image has been saved as: %s %s\n",
			utils.DecorateText(filepath.Base(fname), utils.SuccessMessage),
			utils.DefaultColor,
		)
	}
}
