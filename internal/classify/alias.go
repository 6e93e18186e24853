package classify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultAliases возвращает встроенную таблицу ролей и их псевдонимов.
// Роли соответствуют позициям timeline публичного сайта; порядок
// псевдонимов внутри роли значим (сканирование идёт по порядку).
func DefaultAliases() map[string][]string {
	return map[string][]string{
		"cert1":  {"ccna1", "ccna-1"},
		"cert2":  {"ccna2", "ccna-2", "srwe"},
		"cert2b": {"ccna3", "ccna-3", "ensa"},
		"cert3":  {"python1", "python-1", "python-essential-1"},
		"cert4":  {"python2", "python-2", "python-essential-2"},
		"cert5":  {"aws", "cloud-practitioner"},
		"cert6":  {"linux", "ndg-linux", "ndg", "linux-essential"},
		"cert7":  {"linuxserver", "linux-server"},
		"cert8":  {"cyberops", "cyber-ops"},
		"cert9":  {"ite", "itessential", "it-essential", "itessentiel"},
		"cert10": {"iot", "internet-of-things"},
		"cert11": {"adds", "adds-microsoft", "active-directory"},
		"cert12": {"fsmo", "fsmo-microsoft", "adds-fsmo"},
		"cert13": {"cybersec", "intro-cybersecurity", "cybersecurity", "introduction-cybersecurity"},
		"cert14": {"gpo", "gpo-microsoft", "group-policy"},
		"cert15": {"dns", "dns-microsoft"},
		"cert16": {"windows", "windows-os", "windows-operating-system"},
	}
}

// LoadAliasFile читает YAML-файл с таблицей псевдонимов и накладывает
// его на встроенную: роли из файла замещают одноимённые встроенные,
// остальные встроенные сохраняются. Формат файла:
//
//	cert1:
//	  - ccna1
//	  - ccna-1
func LoadAliasFile(path string) (map[string][]string, error) {
	aliases := DefaultAliases()
	if path == "" {
		return aliases, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение файла псевдонимов %s: %w", path, err)
	}

	var override map[string][]string
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("разбор файла псевдонимов %s: %w", path, err)
	}

	for role, list := range override {
		aliases[role] = list
	}
	return aliases, nil
}
