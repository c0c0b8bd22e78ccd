package catalog

// DefaultReference is the library every comparison is computed against
const DefaultReference = "JsonFusion"

// Default returns the built-in benchmark catalog
func Default() Catalog {
	return Catalog{
		Platforms: []Platform{
			{
				ID:     "arm",
				Name:   "ARM Cortex-M",
				Prefix: "arm-none-eabi-",
				Std:    "c++23",
				Specs:  []string{"-specs=nano.specs", "-specs=nosys.specs"},
				Configs: []BuildConfig{
					{
						Name:  "cortex-m7_os",
						Flags: []string{"-mcpu=cortex-m7", "-mthumb", "-mfloat-abi=hard", "-mfpu=fpv5-d16", "-Os", "-flto"},
					},
					{
						Name:  "cortex-m0plus_os",
						Flags: []string{"-mcpu=cortex-m0plus", "-mthumb", "-mfloat-abi=soft", "-Os", "-flto"},
					},
				},
			},
			{
				ID:     "esp32",
				Name:   "ESP32 (Xtensa LX6)",
				Prefix: "xtensa-esp32-elf-",
				Std:    "c++23",
				Flags:  []string{"-mlongcalls"},
				Configs: []BuildConfig{
					{
						Name:  "esp32_os",
						Flags: []string{"-Os", "-flto"},
					},
				},
			},
			{
				ID:     "avr",
				Name:   "AVR ATmega2560",
				Prefix: "avr-",
				Std:    "c++23",
				Flags:  []string{"-fno-threadsafe-statics", "-g0"},
				Configs: []BuildConfig{
					{
						Name:  "atmega2560_os",
						Flags: []string{"-mmcu=atmega2560", "-Os", "-flto"},
					},
				},
				Lacks: []Capability{CapAtomics, CapHostedStdlib},
			},
		},
		Libraries: []Library{
			{
				Name:        "JsonFusion",
				Source:      "parse_config.cpp",
				Description: "JsonFusion with in-house float parser",
				Version:     "HEAD",
			},
			{
				Name:        "JsonFusion CBOR",
				Source:      "parse_config_cbor.cpp",
				Description: "JsonFusion CBOR reader over the same model",
				Version:     "HEAD",
			},
			{
				Name:        "ArduinoJson",
				Source:      "parse_config_arduinojson.cpp",
				Description: "ArduinoJson v7.2.1",
				Version:     "7.2.1",
				Deps: []Dependency{
					URL("https://github.com/bblanchon/ArduinoJson/releases/download/v7.2.1/ArduinoJson-v7.2.1.h",
						Rename{From: "ArduinoJson-v7.2.1.h", To: "ArduinoJson.h"}),
				},
			},
			{
				Name:        "jsmn",
				Source:      "parse_config_jsmn.cpp",
				Description: "jsmn - minimalist JSON tokenizer",
				Version:     "master",
				Deps: []Dependency{
					URL("https://raw.githubusercontent.com/zserge/jsmn/master/jsmn.h"),
				},
			},
			{
				Name:        "cJSON",
				Source:      "parse_config_cjson.cpp",
				Description: "cJSON - lightweight JSON parser in C",
				Version:     "master",
				Deps: []Dependency{
					URL("https://raw.githubusercontent.com/DaveGamble/cJSON/master/cJSON.h"),
					URL("https://raw.githubusercontent.com/DaveGamble/cJSON/master/cJSON.c"),
				},
			},
			{
				Name:        "Glaze",
				Source:      "parse_config_glaze.cpp",
				Description: "Glaze - probably the fastest JSON parser in C++",
				Version:     "main",
				Deps: []Dependency{
					Repo("https://github.com/stephenberry/glaze.git", "glaze", ""),
				},
				Includes: []string{"glaze/include"},
				Requires: []Capability{CapAtomics, CapHostedStdlib},
			},
		},
		Reference: DefaultReference,
	}
}
