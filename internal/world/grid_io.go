package world

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/annel0/voxel-world/internal/world/block"
)

// Мир сохраняется в формате NumPy .npy v1.0: тип элементов и форма массива
// записаны в текстовом заголовке, за ним следуют сырые байты вокселей.

var (
	// ErrWorldSize возвращается, если форма сохранённого массива не равна (size^3,)
	ErrWorldSize = errors.New("incorrect world size")
	// ErrFormat возвращается для повреждённого или чужого файла
	ErrFormat = errors.New("invalid world file format")
)

const (
	npyMagic     = "\x93NUMPY"
	npyAlignment = 64
	npyDescr     = "|u1"

	// Заголовок словаря .npy занимает единицы килобайт; больше считаем мусором
	maxNpyHeaderLen = 64 << 10
)

var (
	descrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	fortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// npyHeader формирует заголовок для одномерного массива uint8 длины n
func npyHeader(n int) []byte {
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%d,), }", npyDescr, n)

	// magic(6) + версия(2) + длина заголовка(2) + словарь + '\n' кратно 64
	prefix := len(npyMagic) + 2 + 2
	total := prefix + len(dict) + 1
	if rem := total % npyAlignment; rem != 0 {
		dict += strings.Repeat(" ", npyAlignment-rem)
	}
	dict += "\n"

	header := make([]byte, 0, prefix+len(dict))
	header = append(header, npyMagic...)
	header = append(header, 1, 0)
	header = binary.LittleEndian.AppendUint16(header, uint16(len(dict)))
	header = append(header, dict...)
	return header
}

// WriteTo записывает мир в поток в формате .npy
func (g *Grid) WriteTo(w io.Writer) (int64, error) {
	var written int64

	n, err := w.Write(npyHeader(len(g.voxels)))
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("ошибка записи заголовка мира: %w", err)
	}

	n, err = w.Write(g.voxels)
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("ошибка записи вокселей: %w", err)
	}
	return written, nil
}

// Save сохраняет мир в файл.
// Запись идёт во временный файл, который затем атомарно переименовывается.
func (g *Grid) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // после успешного Rename файла уже нет

	buf := bufio.NewWriter(tmp)
	if _, err := g.WriteTo(buf); err != nil {
		tmp.Close()
		return err
	}
	if err := buf.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка записи мира: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка синхронизации файла мира: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия файла мира: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("ошибка сохранения мира в %s: %w", path, err)
	}
	return nil
}

// Load загружает мир из файла.
// Отсутствие файла отличимо через errors.Is(err, fs.ErrNotExist),
// несовпадение размера - через errors.Is(err, ErrWorldSize).
func Load(path string, size int, registry *block.Registry) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть мир: %w", err)
	}
	defer f.Close()

	g, err := ReadGrid(bufio.NewReader(f), size, registry)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// ReadGrid читает мир в формате .npy и проверяет, что он содержит ровно size^3 вокселей
func ReadGrid(r io.Reader, size int, registry *block.Registry) (*Grid, error) {
	prefix := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, fmt.Errorf("%w: короткий заголовок: %v", ErrFormat, err)
	}
	if !bytes.Equal(prefix[:len(npyMagic)], []byte(npyMagic)) {
		return nil, fmt.Errorf("%w: неверная сигнатура", ErrFormat)
	}

	var headerLen int
	switch major := prefix[len(npyMagic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("%w: длина заголовка: %v", ErrFormat, err)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("%w: длина заголовка: %v", ErrFormat, err)
		}
		headerLen = int(n)
	default:
		return nil, fmt.Errorf("%w: неподдерживаемая версия %d", ErrFormat, major)
	}

	if headerLen > maxNpyHeaderLen {
		return nil, fmt.Errorf("%w: длина заголовка %d больше %d", ErrFormat, headerLen, maxNpyHeaderLen)
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: заголовок обрезан: %v", ErrFormat, err)
	}

	n, err := parseNpyHeader(string(header))
	if err != nil {
		return nil, err
	}

	expected := size * size * size
	if n != expected {
		return nil, fmt.Errorf("%w: %d вокселей, ожидалось %d", ErrWorldSize, n, expected)
	}

	g := NewGrid(size, registry)
	if _, err := io.ReadFull(r, g.voxels); err != nil {
		return nil, fmt.Errorf("%w: данные обрезаны: %v", ErrFormat, err)
	}

	var extra [1]byte
	if n, _ := io.ReadFull(r, extra[:]); n > 0 {
		return nil, fmt.Errorf("%w: лишние данные после %d вокселей", ErrFormat, expected)
	}
	return g, nil
}

// parseNpyHeader проверяет тип элементов и возвращает длину одномерного массива.
// Многомерная форма считается несовпадением размера.
func parseNpyHeader(header string) (int, error) {
	descr := descrRe.FindStringSubmatch(header)
	if descr == nil {
		return 0, fmt.Errorf("%w: нет поля descr", ErrFormat)
	}
	switch descr[1] {
	case "|u1", "<u1", ">u1", "u1":
	default:
		return 0, fmt.Errorf("%w: тип элементов %q вместо uint8", ErrFormat, descr[1])
	}

	if fortran := fortranRe.FindStringSubmatch(header); fortran == nil {
		return 0, fmt.Errorf("%w: нет поля fortran_order", ErrFormat)
	}

	shape := shapeRe.FindStringSubmatch(header)
	if shape == nil {
		return 0, fmt.Errorf("%w: нет поля shape", ErrFormat)
	}

	var dims []int
	for _, part := range strings.Split(shape[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil || d < 0 {
			return 0, fmt.Errorf("%w: некорректная форма (%s)", ErrFormat, shape[1])
		}
		dims = append(dims, d)
	}

	if len(dims) != 1 {
		return 0, fmt.Errorf("%w: форма (%s) не одномерная", ErrWorldSize, shape[1])
	}
	return dims[0], nil
}
