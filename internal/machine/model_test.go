package machine_test

import (
	"errors"
	"math"
	"math/cmplx"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/indmach/internal/dynamo"
	"github.com/san-kum/indmach/internal/machine"
	"github.com/san-kum/indmach/internal/seq"
)

const (
	ratedKV  = 2.4
	ratedKVA = 1000.0
	baseFreq = 60.0
)

func ratedVoltage() seq.Vector {
	return seq.Balanced(real(machine.RatedVoltage(ratedKV)), 0, 0, 0)
}

func newModel(p machine.Params, kw float64) (*machine.Model, *dynamo.GenVars, *dynamo.Solution) {
	gen := dynamo.NewGenVars(ratedKV, ratedKVA, kw, baseFreq)
	sol := &dynamo.Solution{Mode: dynamo.ModeSnapshot, H: 0.001}
	return machine.New(p, gen, sol), gen, sol
}

func relErr(got, want complex128) float64 {
	return cmplx.Abs(got-want) / cmplx.Abs(want)
}

var _ = Describe("Derive", func() {
	It("converts per-unit data to ohms on the line-line kV base", func() {
		n := machine.Derive(machine.DefaultParams(), ratedKV, ratedKVA, 2*math.Pi*baseFreq)

		Expect(real(n.Zs)).To(BeNumerically("~", 0.0053*5.76, 1e-12))
		Expect(imag(n.Zs)).To(BeNumerically("~", 0.106*5.76, 1e-12))
		Expect(imag(n.Zm)).To(BeNumerically("~", 4.0*5.76, 1e-12))
		Expect(n.Xopen).To(BeNumerically("~", 23.65056, 1e-9))
		Expect(n.Xp).To(BeNumerically("~", 1.2816279611650485, 1e-9))
		Expect(n.T0p).To(BeNumerically("~", 1.5612342036633542, 1e-9))
		Expect(n.Zsp).To(Equal(complex(real(n.Zs), n.Xp)))
	})

	It("yields non-finite values for a zero kVA rating", func() {
		n := machine.Derive(machine.DefaultParams(), ratedKV, 0, 2*math.Pi*baseFreq)
		Expect(math.IsInf(real(n.Zs), 0) || math.IsNaN(real(n.Zs))).To(BeTrue())
	})
})

var _ = Describe("Model", func() {
	var (
		m   *machine.Model
		gen *dynamo.GenVars
		sol *dynamo.Solution
	)

	BeforeEach(func() {
		m, gen, sol = newModel(machine.DefaultParams(), 900)
	})

	Describe("Update", func() {
		It("sets the slip sensitivity from rated conditions", func() {
			Expect(m.Network().DSdP).To(BeNumerically("~", 2.3315183782282608e-08, 1e-14))
		})

		It("aligns the host speed with the slip", func() {
			Expect(gen.Speed).To(BeNumerically("~", -0.007*gen.W0, 1e-12))
			Expect(gen.DSpeed).To(BeZero())
		})

		It("clears the working voltages and currents", func() {
			v1, v2 := m.Voltages()
			is1, is2 := m.StatorCurrents()
			Expect(v1).To(BeZero())
			Expect(v2).To(BeZero())
			Expect(is1).To(BeZero())
			Expect(is2).To(BeZero())
		})

		It("leaves the sensitivity at zero for zero slip", func() {
			Expect(m.Edit("slip=0")).To(Succeed())
			Expect(m.Network().DSdP).To(BeZero())
			s1, s2 := m.Slips()
			Expect(s1).To(BeZero())
			Expect(s2).To(Equal(2.0))
		})

		DescribeTable("detects fixed slip from the first letter",
			func(option string, fixed bool) {
				p := machine.DefaultParams()
				p.SlipOption = option
				m.SetParams(p)
				Expect(m.IsFixedSlip()).To(Equal(fixed))
			},
			Entry("fixed", "fixed", true),
			Entry("capital", "Fixed", true),
			Entry("abbreviated", "f", true),
			Entry("variable", "variable", false),
			Entry("empty", "", false),
		)
	})

	Describe("SetLocalSlip", func() {
		It("keeps S1 + S2 = 2", func() {
			for _, s := range []float64{-0.3, -0.05, 0, 0.004, 0.09, 0.7} {
				m.SetLocalSlip(s)
				s1, s2 := m.Slips()
				Expect(s2).To(Equal(2 - s1))
				Expect(s1 + s2).To(BeNumerically("~", 2.0, 1e-15))
			}
		})

		It("limits the magnitude outside dynamics and keeps the sign", func() {
			m.SetLocalSlip(0.5)
			s1, _ := m.Slips()
			Expect(s1).To(Equal(0.1))

			m.SetLocalSlip(-0.5)
			s1, _ = m.Slips()
			Expect(s1).To(Equal(-0.1))
		})

		It("does not limit during dynamics", func() {
			sol.Mode = dynamo.ModeDynamic
			m.SetLocalSlip(0.5)
			s1, s2 := m.Slips()
			Expect(s1).To(Equal(0.5))
			Expect(s2).To(Equal(1.5))
		})
	})

	Describe("power flow", func() {
		var iabc seq.Vector

		iterate := func(n int) {
			for i := 0; i < n; i++ {
				sol.IterationFlag = i
				m.Calc(ratedVoltage(), &iabc)
			}
		}

		It("draws about rated current at rated slip", func() {
			Expect(m.Edit("slipoption=fixed")).To(Succeed())
			iterate(1)

			is1, _ := m.StatorCurrents()
			rated := ratedKVA * 1000 / (math.Sqrt(3) * ratedKV * 1000)
			Expect(cmplx.Abs(is1) / rated).To(BeNumerically("~", 1.0, 0.05))
			Expect(cmplx.Abs(is1)).To(BeNumerically("~", 241.27, 0.01))
		})

		It("holds a fixed slip", func() {
			Expect(m.Edit("slipoption=fixed")).To(Succeed())
			iterate(10)
			s1, _ := m.Slips()
			Expect(s1).To(Equal(0.007))
		})

		DescribeTable("converges the slip to the nominal power",
			func(start float64) {
				p := machine.DefaultParams()
				p.Slip = start
				m.SetParams(p)
				gen.PNominalPerPhase = 219800.08595936175

				iterate(30)

				s1, _ := m.Slips()
				Expect(s1).To(BeNumerically("~", 0.005, 1e-6))
				Expect(math.Abs(m.PowerError())).To(BeNumerically("<", 1.0))
			},
			Entry("from below", 0.001),
			Entry("from above", 0.02),
			Entry("from rated", 0.007),
		)

		It("converges as a generator", func() {
			Expect(m.Edit("slip=-0.007")).To(Succeed())
			gen.PNominalPerPhase = -300e3

			iterate(40)

			s1, _ := m.Slips()
			Expect(s1).To(BeNumerically("~", -0.00693841715057965, 1e-6))
			Expect(real(m.Power())).To(BeNumerically("~", -900e3, 10))
		})

		It("stops at MaxSlip when the target is out of reach", func() {
			gen.PNominalPerPhase = 5e6
			iterate(30)
			s1, _ := m.Slips()
			Expect(s1).To(Equal(0.1))
		})

		It("emits no zero-sequence current", func() {
			iterate(5)
			Expect(cmplx.Abs(iabc[0] + iabc[1] + iabc[2])).To(BeNumerically("<", 1e-9))
		})

		It("solves the negative sequence at S2", func() {
			Expect(m.Edit("slipoption=fixed")).To(Succeed())
			v := seq.Balanced(real(machine.RatedVoltage(ratedKV)), 0, 0.05, 0)
			m.Calc(v, &iabc)

			v012 := seq.PhaseToSeq(v)
			_, s2 := m.Slips()
			net := m.Network()
			want, _ := net.Current(v012[2], s2)
			_, is2 := m.StatorCurrents()
			Expect(relErr(is2, want)).To(BeNumerically("<", 1e-12))
		})

		It("is continuous at zero slip", func() {
			v := machine.RatedVoltage(ratedKV)
			zero, _ := m.PFlowCurrent(v, 0)
			equivalent, _ := m.PFlowCurrent(v, 1/(1e6+1))
			tiny, _ := m.PFlowCurrent(v, 1e-9)

			Expect(relErr(zero, equivalent)).To(BeNumerically("<", 1e-9))
			Expect(relErr(zero, tiny)).To(BeNumerically("<", 1e-3))
		})
	})

	Describe("dynamics", func() {
		var iabc seq.Vector

		BeforeEach(func() {
			Expect(m.Edit("slipoption=fixed")).To(Succeed())
			m.Calc(ratedVoltage(), &iabc)
		})

		step := func(v seq.Vector) {
			for it := 0; it < 10; it++ {
				sol.IterationFlag = it
				m.Calc(v, &iabc)
				m.Integrate()
			}
		}

		It("starts from the power-flow operating point", func() {
			speed := m.InitStateVars(ratedVoltage(), iabc)
			Expect(speed).To(BeNumerically("~", -0.007*gen.W0, 1e-12))

			e1, e2 := m.E()
			v1, _ := m.Voltages()
			is1, _ := m.StatorCurrents()
			Expect(relErr(e1, v1-is1*m.Network().Zsp)).To(BeNumerically("<", 1e-12))
			Expect(relErr(e1, complex(1243.02, -274.46))).To(BeNumerically("<", 1e-4))
			Expect(cmplx.Abs(e2)).To(BeNumerically("<", 1e-9))
			Expect(gen.Theta).To(BeNumerically("~", cmplx.Phase(e1), 1e-12))
		})

		It("is in equilibrium after initialisation", func() {
			m.InitStateVars(ratedVoltage(), iabc)
			e1, _ := m.E()
			is1, _ := m.StatorCurrents()
			s1, _ := m.Slips()
			Expect(cmplx.Abs(m.Derivative(e1, is1, s1))).To(BeNumerically("<", 1e-6))

			sol.Mode = dynamo.ModeDynamic
			before := cmplx.Abs(is1)
			for k := 0; k < 100; k++ {
				step(ratedVoltage())
			}
			is1, _ = m.StatorCurrents()
			Expect(cmplx.Abs(is1)).To(BeNumerically("~", before, before*1e-6))
		})

		It("settles on the steady-state current after a voltage sag", func() {
			m.InitStateVars(ratedVoltage(), iabc)
			sol.Mode = dynamo.ModeDynamic

			sag := seq.Balanced(0.8*real(machine.RatedVoltage(ratedKV)), 0, 0, 0)
			for k := 0; k < 1000; k++ {
				step(sag)
			}

			is1, _ := m.StatorCurrents()
			want, _ := m.PFlowCurrent(0.8*machine.RatedVoltage(ratedKV), 0.007)
			Expect(cmplx.Abs(is1)).To(BeNumerically("~", cmplx.Abs(want), 1e-3*cmplx.Abs(want)))
			Expect(cmplx.Abs(want)).To(BeNumerically("~", 193.013, 0.01))
		})

		It("follows the host speed without limiting slip", func() {
			m.InitStateVars(ratedVoltage(), iabc)
			sol.Mode = dynamo.ModeDynamic
			gen.Speed = -0.5 * gen.W0

			m.Calc(ratedVoltage(), &iabc)
			s1, _ := m.Slips()
			Expect(s1).To(BeNumerically("~", 0.5, 1e-12))
		})
	})

	Describe("Edit", func() {
		It("accepts names and prefixes case-insensitively", func() {
			Expect(m.Edit("PURS=0.01 s=0.02")).To(Succeed())
			Expect(m.PuRs).To(Equal(0.01))
			Expect(m.Slip).To(Equal(0.02))
			s1, _ := m.Slips()
			Expect(s1).To(Equal(0.02))
		})

		It("fills positional values in order", func() {
			Expect(m.Edit("motor1, 0.5, 0.1")).To(Succeed())
			Expect(m.ModelName).To(Equal("motor1"))
			Expect(m.H).To(Equal(0.5))
			Expect(m.D).To(Equal(0.1))

			Expect(m.Edit("slip=0.01 0.2")).To(Succeed())
			Expect(m.Slip).To(Equal(0.01))
			Expect(m.MaxSlip).To(Equal(0.2))
		})

		It("gives a shared prefix to the first name that claims it", func() {
			Expect(m.Edit("p=induction")).To(Succeed())
			Expect(m.ModelName).To(Equal("induction"))
			Expect(m.PuRs).To(Equal(0.0053))

			Expect(m.Edit("pu=0.01")).To(Succeed())
			Expect(m.PuRs).To(Equal(0.01))
		})

		It("toggles debug through option without rederiving", func() {
			Expect(m.Edit("option=Debug")).To(Succeed())
			Expect(m.DebugEnabled()).To(BeTrue())

			Expect(m.Edit("OPTION=nodebug")).To(Succeed())
			Expect(m.DebugEnabled()).To(BeFalse())

			Expect(m.Edit("option=x")).To(Succeed())
			Expect(m.DebugEnabled()).To(BeFalse())

			m.SetLocalSlip(0.03)
			Expect(m.Edit("option=d")).To(Succeed())
			s1, _ := m.Slips()
			Expect(s1).To(Equal(0.03))
		})

		It("rejects a positional value after option", func() {
			err := m.Edit("option=d 0.5")
			Expect(errors.Is(err, dynamo.ErrUnknownParam)).To(BeTrue())
			Expect(m.DebugEnabled()).To(BeFalse())
		})

		It("sends the help text without moving the position", func() {
			var got []string
			m.SetMessageFunc(func(s string) { got = append(got, s) })

			Expect(m.Edit("help")).To(Succeed())
			Expect(got).To(Equal([]string{machine.HelpText}))

			Expect(m.Edit("HELP slip=0.02 0.3")).To(Succeed())
			Expect(got).To(HaveLen(2))
			Expect(m.Slip).To(Equal(0.02))
			Expect(m.MaxSlip).To(Equal(0.3))
		})

		It("resolves the slip option separately from slip", func() {
			Expect(m.Edit("slipo=fixed")).To(Succeed())
			Expect(m.IsFixedSlip()).To(BeTrue())
			Expect(m.Slip).To(Equal(0.007))
		})

		It("rejects unknown names without changing anything", func() {
			before := m.Params
			err := m.Edit("puRs=0.5 bogus=1")
			Expect(errors.Is(err, dynamo.ErrUnknownParam)).To(BeTrue())
			Expect(m.Params).To(Equal(before))
		})

		It("rejects malformed numbers without changing anything", func() {
			before := m.Params
			Expect(m.Edit("slip=0.02 puXm=abc")).NotTo(Succeed())
			Expect(m.Params).To(Equal(before))
		})

		It("reports the numeric parameters", func() {
			got := m.GetParams()
			Expect(got).To(HaveLen(9))
			Expect(got).To(HaveKeyWithValue("puXm", 4.0))
			Expect(got).NotTo(HaveKey("slipOption"))
			Expect(got).NotTo(HaveKey("pymodel"))
		})
	})

	Describe("diagnostics", func() {
		var iabc seq.Vector

		BeforeEach(func() {
			Expect(m.Edit("slipoption=fixed")).To(Succeed())
			m.Calc(ratedVoltage(), &iabc)
		})

		It("reports a lagging motor operating point", func() {
			Expect(m.PowerFactor()).To(BeNumerically(">", 0.8))
			Expect(m.PowerFactor()).To(BeNumerically("<", 1))
			Expect(m.EfficiencyPct()).To(BeNumerically(">", 95))
			Expect(m.EfficiencyPct()).To(BeNumerically("<=", 100))
			Expect(m.StatorLosses()).To(BeNumerically(">", 0))
			Expect(m.RotorLosses()).To(BeNumerically(">", 0))
			Expect(m.ShaftPowerHP()).To(BeNumerically(">", 1000))
		})

		It("matches the three-phase power to the sequence power", func() {
			v1, _ := m.Voltages()
			is1, _ := m.StatorCurrents()
			Expect(real(m.Power())).To(BeNumerically("~", 3*real(v1*cmplx.Conj(is1)), 1e-3))
			Expect(real(m.Power())).To(BeNumerically("~", 3*300233.5, 5))
		})

		It("gives a negative power factor when generating", func() {
			Expect(m.Edit("slip=-0.007")).To(Succeed())
			m.Calc(ratedVoltage(), &iabc)
			Expect(real(m.Power())).To(BeNumerically("<", 0))
			Expect(m.PowerFactor()).To(BeNumerically("<", 0))
			Expect(m.EfficiencyPct()).To(Equal(100.0))
		})

		It("exposes outputs by 1-based index", func() {
			Expect(m.NumVars()).To(Equal(17))
			Expect(m.VarName(1)).To(Equal("Slip"))
			Expect(m.VarName(0)).To(BeEmpty())
			Expect(m.VarName(18)).To(BeEmpty())
			Expect(m.Var(1)).To(Equal(0.007))

			is1, _ := m.StatorCurrents()
			Expect(m.VarName(8)).To(Equal("Is1"))
			Expect(m.Var(8)).To(Equal(cmplx.Abs(is1)))

			outs := m.Outputs()
			Expect(outs).To(HaveLen(17))
			Expect(outs[len(outs)-1].Name).To(Equal("Efficiency_pct"))
		})
	})
})
