package booking

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"
)

// dateHorizon is how many days ahead the terminal offers dates.
const dateHorizon = 21

var errBack = errors.New("back")

// Terminal runs a Wizard as a line-oriented dialog.
type Terminal struct {
	in  *bufio.Scanner
	out io.Writer
	wiz *Wizard
	now func() time.Time
}

func NewTerminal(in io.Reader, out io.Writer, wiz *Wizard) *Terminal {
	return &Terminal{
		in:  bufio.NewScanner(in),
		out: out,
		wiz: wiz,
		now: wiz.now,
	}
}

// Run drives the wizard until the appointment is confirmed or input ends.
func (t *Terminal) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		switch t.wiz.Step() {
		case StepSelectProvider:
			err = t.provider()
		case StepSelectSchedule:
			err = t.schedule()
		case StepReview:
			err = t.review(ctx)
		case StepConfirmed:
			a := t.wiz.Appointment()
			fmt.Fprintf(t.out, "\n¡Cita confirmada! %s a las %s.\n",
				a.StartTime.Format("02/01/2006"), a.StartTime.Format(slotLayout))
			return nil
		}
		if errors.Is(err, errBack) {
			if berr := t.wiz.Back(); berr != nil && !errors.Is(berr, ErrFirstStep) {
				return berr
			}
			continue
		}
		var verr *ValidationError
		if errors.As(err, &verr) {
			for _, msg := range verr.Fields {
				fmt.Fprintf(t.out, "  ! %s\n", msg)
			}
			continue
		}
		if err != nil {
			return err
		}
	}
}

func (t *Terminal) provider() error {
	fmt.Fprintln(t.out, "\nPaso 1: Selecciona especialidad y médico")
	names := make([]string, len(Specialties))
	for i, s := range Specialties {
		names[i] = s.Name
	}
	i, err := t.choose("Especialidad", names)
	if err != nil {
		return err
	}
	if err := t.wiz.SelectSpecialty(Specialties[i].ID); err != nil {
		return err
	}

	doctors := t.wiz.Doctors()
	if len(doctors) == 0 {
		fmt.Fprintln(t.out, "  No hay médicos disponibles para esta especialidad.")
		return nil
	}
	names = make([]string, len(doctors))
	for i, d := range doctors {
		names[i] = fmt.Sprintf("%s (%s, %s-%s)", d.FullName, strings.Join(d.AvailableDays, ", "), d.StartTime, d.EndTime)
	}
	i, err = t.choose("Médico", names)
	if err != nil {
		return err
	}
	if err := t.wiz.SelectDoctor(doctors[i].ID); err != nil {
		return err
	}

	reason, err := t.prompt("Motivo de la consulta")
	if err != nil {
		return err
	}
	if err := t.wiz.SetReason(reason); err != nil {
		return err
	}
	return t.wiz.Next()
}

func (t *Terminal) schedule() error {
	fmt.Fprintln(t.out, "\nPaso 2: Elige fecha y horario (b para volver)")
	var dates []time.Time
	now := t.now()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	for i := 0; i < dateHorizon; i++ {
		day := today.AddDate(0, 0, i)
		if t.wiz.DateSelectable(day) {
			dates = append(dates, day)
		}
	}
	if len(dates) == 0 {
		fmt.Fprintln(t.out, "  El médico no tiene fechas disponibles.")
		return errBack
	}
	labels := make([]string, len(dates))
	for i, day := range dates {
		labels[i] = WeekdayName(day.Weekday()) + " " + day.Format("02/01/2006")
	}
	i, err := t.choose("Fecha", labels)
	if err != nil {
		return err
	}
	if err := t.wiz.SelectDate(dates[i]); err != nil {
		return err
	}

	slots := slices.Collect(t.wiz.Slots())
	if len(slots) == 0 {
		fmt.Fprintln(t.out, "  No hay horarios para esta fecha.")
		return nil
	}
	i, err = t.choose("Horario", slots)
	if err != nil {
		return err
	}
	if err := t.wiz.SelectSlot(slots[i]); err != nil {
		return err
	}
	return t.wiz.Next()
}

func (t *Terminal) review(ctx context.Context) error {
	d := t.wiz.Draft()
	doc := t.wiz.SelectedDoctor()
	fmt.Fprintln(t.out, "\nPaso 3: Confirma los detalles")
	if doc != nil {
		fmt.Fprintf(t.out, "  Médico:  %s (%s)\n", doc.FullName, doc.Specialization)
	}
	fmt.Fprintf(t.out, "  Fecha:   %s %s\n", WeekdayName(d.Date.Weekday()), d.Date.Format("02/01/2006"))
	fmt.Fprintf(t.out, "  Horario: %s\n", d.Slot)
	fmt.Fprintf(t.out, "  Motivo:  %s\n", d.Reason)

	answer, err := t.prompt("Confirmar cita? [s/b]")
	if err != nil {
		return err
	}
	switch strings.ToLower(answer) {
	case "b":
		return errBack
	case "s", "si", "sí":
		if err := t.wiz.Submit(ctx); err != nil {
			if !errors.Is(err, ErrSubmissionFailed) {
				return err
			}
			fmt.Fprintf(t.out, "  ! %s\n", t.wiz.Notice())
			t.wiz.DismissNotice()
		}
	}
	return nil
}

func (t *Terminal) choose(label string, options []string) (int, error) {
	for i, o := range options {
		fmt.Fprintf(t.out, "  %2d) %s\n", i+1, o)
	}
	for {
		answer, err := t.prompt(label)
		if err != nil {
			return 0, err
		}
		if answer == "b" {
			return 0, errBack
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintf(t.out, "  ! Opción inválida, elige entre 1 y %d\n", len(options))
	}
}

func (t *Terminal) prompt(label string) (string, error) {
	fmt.Fprintf(t.out, "%s: ", label)
	if !t.in.Scan() {
		if err := t.in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(t.in.Text()), nil
}
