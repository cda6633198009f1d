package sim_test

import (
	"context"
	"io"
	"math"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/san-kum/quadsim/internal/control"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/hil"
	"github.com/san-kum/quadsim/internal/plant"
	"github.com/san-kum/quadsim/internal/protocol"
	"github.com/san-kum/quadsim/internal/scenario"
	"github.com/san-kum/quadsim/internal/sim"
	"github.com/san-kum/quadsim/internal/vehicle"
)

func newSupervisor() *control.Supervisor {
	c, err := control.New(vehicle.Default(), control.DefaultTuning())
	Expect(err).NotTo(HaveOccurred())
	return control.NewSupervisor(c)
}

func fly(name string, fc sim.FlightController) *sim.Result {
	sc := scenario.Get(name)
	Expect(sc).NotTo(BeNil())

	p, err := plant.New(vehicle.Default())
	Expect(err).NotTo(HaveOccurred())
	p.SetState(sc.InitialState())

	result, err := sim.New(p, fc, sc).Run(context.Background(), sim.Config{Duration: sc.Duration})
	Expect(err).NotTo(HaveOccurred())
	return result
}

var _ = Describe("Local flight", func() {
	params := vehicle.Default()
	hover := params.HoverForce()

	It("settles into hover with equal propeller forces", func() {
		local := sim.NewLocal(newSupervisor())
		result := fly("hover", local)

		final := result.Final()
		Expect(final.Mode).To(Equal(dynamo.ModeEnabled))
		for _, f := range final.Forces {
			Expect(f).To(BeNumerically("~", hover, 1e-4))
		}
		Expect(final.Accel.Norm()).To(BeNumerically("<", 1e-3))
		Expect(local.Supervisor().Controller().Torque().Norm()).To(BeNumerically("<", 1e-9))
	})

	It("turns to a heading step using yaw torque only", func() {
		local := sim.NewLocal(newSupervisor())
		ctrl := local.Supervisor().Controller()
		maxZ := 0.0

		sc := scenario.Get("yaw_step")
		p, err := plant.New(params)
		Expect(err).NotTo(HaveOccurred())
		s := sim.New(p, local, sc)
		s.AddObserver(sim.ObserverFunc(func(rec dynamo.Record) {
			tau := ctrl.Torque()
			Expect(math.Abs(tau.X)).To(BeNumerically("<", 1e-9), "tick %d", rec.Tick)
			Expect(math.Abs(tau.Y)).To(BeNumerically("<", 1e-9), "tick %d", rec.Tick)
			maxZ = math.Max(maxZ, math.Abs(tau.Z))

			roll, pitch, _ := rec.State.Orientation.Euler()
			Expect(math.Abs(roll)).To(BeNumerically("<", 1e-6))
			Expect(math.Abs(pitch)).To(BeNumerically("<", 1e-6))
		}))

		result, err := s.Run(context.Background(), sim.Config{Duration: sc.Duration})
		Expect(err).NotTo(HaveOccurred())

		Expect(maxZ).To(BeNumerically(">", 0))
		_, _, yaw := result.Final().Orientation.Euler()
		Expect(yaw).To(BeNumerically("~", math.Pi/2, 0.05))
		Expect(ctrl.AttitudeError().Angle()).To(BeNumerically("<", 0.05))
	})

	It("recovers from a large roll while saturated", func() {
		local := sim.NewLocal(newSupervisor())
		result := fly("recover", local)

		saturated := 0
		for _, rec := range result.Records {
			if rec.Saturated {
				saturated++
			}
			Expect(rec.State.Mode).To(Equal(dynamo.ModeEnabled))
			for _, f := range rec.State.Forces {
				Expect(f).To(BeNumerically(">=", params.PropMin))
				Expect(f).To(BeNumerically("<=", params.PropMax))
			}
		}
		Expect(saturated).To(BeNumerically(">", 0))
		Expect(result.Final().Tilt()).To(BeNumerically("<", 0.01))
	})

	It("fails and cuts the motors when started inverted", func() {
		result := fly("flip", sim.NewLocal(newSupervisor()))
		for _, rec := range result.Records {
			Expect(rec.State.Mode).To(Equal(dynamo.ModeFailed))
			Expect(rec.State.Forces).To(Equal(dynamo.Forces{}))
		}
	})

	It("free-falls with motors off when disabled", func() {
		result := fly("idle", sim.NewLocal(newSupervisor()))
		for _, rec := range result.Records {
			Expect(rec.State.Forces).To(Equal(dynamo.Forces{}))
			Expect(rec.State.Accel.Z).To(BeNumerically("~", -params.Gravity, 1e-12))
		}
	})
})

var _ = Describe("Force regulation", func() {
	It("scales all four torque contributions by the same factor", func() {
		params := vehicle.Default()
		m, err := vehicle.Derive(params)
		Expect(err).NotTo(HaveOccurred())
		alloc := control.NewAllocator(m, params.PropMin, params.PropMax)

		// alone, this roll torque would push props 0 and 2 past the maximum
		tau := dynamo.Vec3{X: 0.5}
		fAng := m.AllocTorque(tau)
		fLin := m.AllocThrust(params.Mass * params.Gravity)
		Expect(fAng[0] + fLin[0]).To(BeNumerically(">", params.PropMax))

		a := alloc.Allocate(tau, params.Mass*params.Gravity)
		Expect(a.Saturated).To(BeTrue())
		Expect(a.Scale).To(BeNumerically("<", 1))
		for i := range a.Forces {
			Expect(a.Forces[i]).To(BeNumerically("~", a.Scale*fAng[i]+fLin[i], 1e-12))
		}
		Expect(a.Forces[0]).To(Equal(params.PropMax))
	})
})

var _ = Describe("Hardware-in-the-loop", func() {
	var host, dev net.Conn

	BeforeEach(func() {
		host, dev = net.Pipe()
	})

	AfterEach(func() {
		host.Close()
		dev.Close()
	})

	It("hovers with the control law running behind the serial protocol", func() {
		sc := scenario.Get("hover")
		device := hil.NewDevice(dev, newSupervisor(), sc, zerolog.Nop())
		go device.Run(context.Background())

		bridge, err := hil.NewBridge(host, hil.WithTimeout(time.Second))
		Expect(err).NotTo(HaveOccurred())
		defer bridge.Close()

		p, err := plant.New(vehicle.Default())
		Expect(err).NotTo(HaveOccurred())
		result, err := sim.New(p, bridge, sc).Run(context.Background(), sim.Config{Duration: 5})
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Timeouts).To(BeZero())
		Expect(device.Ticks()).To(Equal(len(result.Records)))
		for _, f := range result.Final().Forces {
			Expect(f).To(BeNumerically("~", vehicle.Default().HoverForce(), 1e-3))
		}
	})

	It("fails the vehicle when the device stops answering", func() {
		hover := vehicle.Default().HoverForce()
		go func() {
			enc := protocol.NewEncoder(dev, protocol.HostSchema)
			dec := protocol.NewDecoder(dev, protocol.DeviceSchema)
			for i := 0; i < 10; i++ {
				if _, err := dec.Next(); err != nil {
					return
				}
				enc.WriteFrame(protocol.IDUpdate, protocol.EncodeForces(dynamo.Forces{hover, hover, hover, hover}))
			}
			io.Copy(io.Discard, dev)
		}()

		bridge, err := hil.NewBridge(host, hil.WithTimeout(20*time.Millisecond))
		Expect(err).NotTo(HaveOccurred())
		defer bridge.Close()

		p, err := plant.New(vehicle.Default())
		Expect(err).NotTo(HaveOccurred())
		s := sim.New(p, bridge, scenario.Get("hover"))
		result, err := s.Run(context.Background(), sim.Config{Duration: 2, StopOnFail: true})
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Timeouts).To(Equal(1))
		Expect(result.Records).To(HaveLen(11))
		Expect(result.Records[9].State.Mode).To(Equal(dynamo.ModeEnabled))
		last := result.Final()
		Expect(last.Mode).To(Equal(dynamo.ModeFailed))
		Expect(last.Forces).To(Equal(dynamo.Forces{}))
	})
})
