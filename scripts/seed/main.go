package main

import (
	"flag"
	"fmt"
	"log"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/campusctl/edt-api/pkg/config"
	"github.com/campusctl/edt-api/pkg/database"
)

// Seeds a development database with a small school directory: two
// classes with students, teachers, classrooms, and subjects, including
// group-split subjects so conflict scenarios can be exercised by hand.

type classSeed struct {
	ID   string
	Name string
}

type teacherSeed struct {
	ID       string
	FullName string
	Email    string
}

type classroomSeed struct {
	ID       string
	Name     string
	Capacity int
}

type subjectSeed struct {
	ID         string
	Name       string
	ClassID    string
	GroupCount int
	TeacherIDs []string
}

type studentSeed struct {
	ID       string
	FullName string
	ClassID  string
}

var classes = []classSeed{
	{"class-b1", "B1 Informatique"},
	{"class-b2", "B2 Informatique"},
}

var teachers = []teacherSeed{
	{"teacher-durand", "Claire Durand", "claire.durand@example.edu"},
	{"teacher-lefevre", "Marc Lefevre", "marc.lefevre@example.edu"},
	{"teacher-moreau", "Sophie Moreau", "sophie.moreau@example.edu"},
	{"teacher-petit", "Julien Petit", "julien.petit@example.edu"},
	{"teacher-roux", "Emma Roux", "emma.roux@example.edu"},
}

var classrooms = []classroomSeed{
	{"room-a101", "A101", 40},
	{"room-a102", "A102", 40},
	{"room-b201", "B201", 24},
	{"room-lab1", "Lab 1", 16},
}

var subjects = []subjectSeed{
	{"subject-algo", "Algorithmique", "class-b1", 2, []string{"teacher-durand", "teacher-petit"}},
	{"subject-maths", "Mathematiques", "class-b1", 0, []string{"teacher-lefevre"}},
	{"subject-web", "Developpement Web", "class-b1", 3, []string{"teacher-moreau", "teacher-roux"}},
	{"subject-bdd", "Bases de Donnees", "class-b2", 2, []string{"teacher-durand"}},
	{"subject-reseaux", "Reseaux", "class-b2", 0, []string{"teacher-petit", "teacher-roux"}},
}

var students = []studentSeed{
	{"student-bernard", "Alice Bernard", "class-b1"},
	{"student-colin", "Hugo Colin", "class-b1"},
	{"student-dubois", "Lea Dubois", "class-b1"},
	{"student-fontaine", "Nathan Fontaine", "class-b1"},
	{"student-garnier", "Chloe Garnier", "class-b1"},
	{"student-henry", "Louis Henry", "class-b1"},
	{"student-joly", "Manon Joly", "class-b2"},
	{"student-lambert", "Theo Lambert", "class-b2"},
	{"student-marchand", "Camille Marchand", "class-b2"},
	{"student-noel", "Arthur Noel", "class-b2"},
}

func main() {
	var reset bool
	flag.BoolVar(&reset, "reset", false, "wipe previously seeded directory rows first")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close() //nolint:errcheck

	if reset {
		if err := wipe(db); err != nil {
			log.Fatalf("failed to reset directory tables: %v", err)
		}
	}

	if err := seed(db); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	fmt.Printf("seeded %d classes, %d teachers, %d classrooms, %d subjects, %d students\n",
		len(classes), len(teachers), len(classrooms), len(subjects), len(students))
}

func wipe(db *sqlx.DB) error {
	stmts := []string{
		`DELETE FROM subject_students`,
		`DELETE FROM subject_teachers`,
		`DELETE FROM occupancy_teachers`,
		`DELETE FROM occupancies`,
		`DELETE FROM subjects`,
		`DELETE FROM students`,
		`DELETE FROM classrooms`,
		`DELETE FROM teachers`,
		`DELETE FROM classes`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

func seed(db *sqlx.DB) error {
	for _, c := range classes {
		if _, err := db.Exec(`INSERT INTO classes (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, c.ID, c.Name); err != nil {
			return fmt.Errorf("insert class %s: %w", c.ID, err)
		}
	}
	for _, t := range teachers {
		if _, err := db.Exec(`INSERT INTO teachers (id, full_name, email) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`, t.ID, t.FullName, t.Email); err != nil {
			return fmt.Errorf("insert teacher %s: %w", t.ID, err)
		}
	}
	for _, r := range classrooms {
		if _, err := db.Exec(`INSERT INTO classrooms (id, name, capacity) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`, r.ID, r.Name, r.Capacity); err != nil {
			return fmt.Errorf("insert classroom %s: %w", r.ID, err)
		}
	}
	for _, s := range students {
		if _, err := db.Exec(`INSERT INTO students (id, full_name, class_id) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`, s.ID, s.FullName, s.ClassID); err != nil {
			return fmt.Errorf("insert student %s: %w", s.ID, err)
		}
	}
	for _, sub := range subjects {
		if _, err := db.Exec(`INSERT INTO subjects (id, name, class_id, group_count) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
			sub.ID, sub.Name, sub.ClassID, sub.GroupCount); err != nil {
			return fmt.Errorf("insert subject %s: %w", sub.ID, err)
		}
		for _, teacherID := range sub.TeacherIDs {
			if _, err := db.Exec(`INSERT INTO subject_teachers (subject_id, teacher_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, sub.ID, teacherID); err != nil {
				return fmt.Errorf("assign teacher %s to %s: %w", teacherID, sub.ID, err)
			}
		}
		if err := enroll(db, sub); err != nil {
			return err
		}
	}
	return nil
}

// enroll registers every student of the subject's class. Group-split
// subjects distribute students round-robin over groups 1..GroupCount,
// in full-name order so reruns produce the same assignment.
func enroll(db *sqlx.DB, sub subjectSeed) error {
	var roster []studentSeed
	for _, s := range students {
		if s.ClassID == sub.ClassID {
			roster = append(roster, s)
		}
	}
	sort.Slice(roster, func(i, j int) bool {
		if roster[i].FullName != roster[j].FullName {
			return roster[i].FullName < roster[j].FullName
		}
		return roster[i].ID < roster[j].ID
	})

	for i, s := range roster {
		var group interface{}
		if sub.GroupCount > 0 {
			group = i%sub.GroupCount + 1
		}
		if _, err := db.Exec(`INSERT INTO subject_students (subject_id, student_id, group_number) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			sub.ID, s.ID, group); err != nil {
			return fmt.Errorf("enroll %s in %s: %w", s.ID, sub.ID, err)
		}
	}
	return nil
}
