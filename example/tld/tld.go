package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"strconv"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/golang/glog"
	"github.com/swdee/go-tld/imgproc"
	"github.com/swdee/go-tld/opticalflow"
	"github.com/swdee/go-tld/opticalflow/cvflow"
	"github.com/swdee/go-tld/preprocess"
	"github.com/swdee/go-tld/render"
	"github.com/swdee/go-tld/tracker"
	"gocv.io/x/gocv"
)

// Args are the command line options of the demo
type Args struct {
	Video   string `arg:"-i,--input,required" help:"video file to track, or camera device number"`
	Box     []int  `arg:"-b,--box,required" help:"initial target x0 y0 x1 y1 in video coordinates"`
	Config  string `arg:"-c,--config" help:"path to tracker YAML configuration file"`
	MaxSide int    `arg:"-m,--max-side" help:"largest side of the frames tracking runs on"`
	Output  string `arg:"-o,--output" help:"write annotated video to this file"`
	Show    bool   `arg:"-s,--show" help:"display annotated video in a window"`
	OpenCV  bool   `arg:"--opencv" help:"use the OpenCV point tracker instead of the Go tracker"`
	Trail   int    `arg:"-t,--trail" help:"number of target positions drawn in the trail"`
	Verbose int    `arg:"-v,--verbose" help:"tracker log verbosity"`
}

// Description is the program summary shown in the help text
func (Args) Description() string {
	return "Track a single object through a video with TLD"
}

// Demo holds the state of the tracking session
type Demo struct {
	args    Args
	video   *gocv.VideoCapture
	writer  *gocv.VideoWriter
	window  *gocv.Window
	scaler  *preprocess.FrameScaler
	tld     *tracker.TLDTracker
	cvflow  *cvflow.Tracker
	trail   *tracker.Trail
	points  []imgproc.Point
	font    render.Font
	boxSty  render.TargetStyle
	trailSt render.TrailStyle
}

func main() {
	var args Args
	args.MaxSide = 320
	args.Trail = 90
	arg.MustParse(&args)

	// route tracker logging to stderr at the requested verbosity
	flag.Set("logtostderr", "true")
	flag.Set("v", strconv.Itoa(args.Verbose))
	flag.CommandLine.Parse(nil)
	defer glog.Flush()

	if len(args.Box) != 4 {
		log.Fatalf("Box requires four values x0 y0 x1 y1, got %d", len(args.Box))
	}

	demo, err := NewDemo(args)

	if err != nil {
		log.Fatalf("Error starting demo: %v", err)
	}

	defer demo.Close()

	if err := demo.Run(); err != nil {
		log.Fatalf("Error tracking: %v", err)
	}
}

// NewDemo opens the video and creates the tracker
func NewDemo(args Args) (*Demo, error) {

	d := &Demo{
		args:    args,
		trail:   tracker.NewTrail(args.Trail),
		font:    render.DefaultFont(),
		boxSty:  render.DefaultTargetStyle(),
		trailSt: render.DefaultTrailStyle(),
	}

	conf := tracker.DefaultConfig()

	if args.Config != "" {
		loaded, err := tracker.LoadConfig(args.Config)

		if err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}

		conf = *loaded
	}

	var err error

	if dev, convErr := strconv.Atoi(args.Video); convErr == nil {
		d.video, err = gocv.OpenVideoCapture(dev)
	} else {
		d.video, err = gocv.VideoCaptureFile(args.Video)
	}

	if err != nil {
		return nil, fmt.Errorf("error opening video %s: %w", args.Video, err)
	}

	width := int(d.video.Get(gocv.VideoCaptureFrameWidth))
	height := int(d.video.Get(gocv.VideoCaptureFrameHeight))

	d.scaler = preprocess.NewFrameScaler(width, height, args.MaxSide)

	log.Printf("Video %dx%d tracked at %dx%d", width, height,
		d.scaler.DestWidth(), d.scaler.DestHeight())

	var points tracker.PointTracker

	if args.OpenCV {
		flowConfig := opticalflow.DefaultConfig()
		flowConfig.TemplateRadius = conf.TrackerFeatureRadius
		flowConfig.Levels = conf.PyramidLevels

		d.cvflow, err = cvflow.New(flowConfig)

		if err != nil {
			return nil, fmt.Errorf("error creating OpenCV point tracker: %w", err)
		}

		points = d.cvflow
	}

	d.tld, err = tracker.NewTLDTracker(conf, points)

	if err != nil {
		return nil, fmt.Errorf("error creating tracker: %w", err)
	}

	if args.Output != "" {
		fps := d.video.Get(gocv.VideoCaptureFPS)

		if fps <= 0 {
			fps = 30
		}

		d.writer, err = gocv.VideoWriterFile(args.Output, "mp4v", fps, width, height, true)

		if err != nil {
			return nil, fmt.Errorf("error creating video writer: %w", err)
		}
	}

	if args.Show {
		d.window = gocv.NewWindow("TLD")
	}

	return d, nil
}

// Run tracks the target through every frame of the video
func (d *Demo) Run() error {

	img := gocv.NewMat()
	defer img.Close()

	if ok := d.video.Read(&img); !ok || img.Empty() {
		return fmt.Errorf("no frames in video %s", d.args.Video)
	}

	gray, err := d.scaler.Gray(img)

	if err != nil {
		return err
	}

	box := d.scaler.ToWorking(image.Rect(d.args.Box[0], d.args.Box[1],
		d.args.Box[2], d.args.Box[3]))

	err = d.tld.Initialize(gray, box.Min.X, box.Min.Y, box.Max.X, box.Max.Y)

	if err != nil {
		return fmt.Errorf("error initializing tracker: %w", err)
	}

	log.Printf("Tracking %v using %d cascade windows", box, d.tld.Windows())

	d.trail.Add(d.tld.TargetRegion(), true)

	if quit := d.annotate(&img); quit {
		return nil
	}

	frames := 0
	var elapsed time.Duration

	for {
		if ok := d.video.Read(&img); !ok || img.Empty() {
			break
		}

		gray, err := d.scaler.Gray(img)

		if err != nil {
			return err
		}

		start := time.Now()
		found, err := d.tld.Track(gray)
		elapsed += time.Since(start)
		frames++

		if err != nil {
			return fmt.Errorf("error tracking frame %d: %w", frames, err)
		}

		d.trail.Add(d.tld.TargetRegion(), found)

		if quit := d.annotate(&img); quit {
			break
		}
	}

	if frames > 0 {
		positives, negatives := d.tld.Templates()

		log.Printf("Tracked %d frames, average %s per frame, templates %d/%d, fern features %d",
			frames, elapsed/time.Duration(frames), positives, negatives,
			d.tld.FernFeatures())
	}

	return nil
}

// annotate draws the tracking result on img and sends it to the outputs.
// Returns true when the user closed the window
func (d *Demo) annotate(img *gocv.Mat) bool {

	scale := d.scaler.ScaleFactor()
	state := d.tld.State()

	if state == tracker.Tracking {
		d.points = d.tld.TrackedPoints(d.points[:0])
		render.TrackedPoints(img, d.points, scale, d.boxSty)
	}

	render.Trail(img, d.trail, scale, d.trailSt)
	render.TargetBox(img, d.scaler.ToSource(d.tld.TargetRegion()), state,
		d.tld.Confidence(), d.font, d.boxSty)

	render.StatusText(img, fmt.Sprintf("%s via %s", state, d.tld.LastFusion()), d.font)

	if d.writer != nil {
		if err := d.writer.Write(*img); err != nil {
			log.Printf("Error writing frame: %v", err)
		}
	}

	if d.window != nil {
		d.window.IMShow(*img)

		// esc
		if d.window.WaitKey(1) == 27 {
			return true
		}
	}

	return false
}

// Close releases the video resources
func (d *Demo) Close() {

	if d.window != nil {
		d.window.Close()
	}

	if d.writer != nil {
		d.writer.Close()
	}

	if d.cvflow != nil {
		d.cvflow.Close()
	}

	if d.scaler != nil {
		d.scaler.Close()
	}

	if d.video != nil {
		d.video.Close()
	}
}
